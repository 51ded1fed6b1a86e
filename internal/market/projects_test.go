package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"marketplace/models"
)

func TestCreateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	contractor := f.user(t, "contractor", models.RoleContractor)

	valid := NewProject{Title: " Roof repair ", Description: "Leaking roof", Budget: 5000, Deadline: "2025-12-01"}

	_, err := f.svc.CreateProject(ctx, contractor, valid)
	requireKind(t, err, KindForbidden)

	for name, in := range map[string]NewProject{
		"missing title":  {Description: "d", Budget: 1, Deadline: "2025-12-01"},
		"zero budget":    {Title: "t", Description: "d", Budget: 0, Deadline: "2025-12-01"},
		"bad deadline":   {Title: "t", Description: "d", Budget: 1, Deadline: "01/12/2025"},
		"missing detail": {Title: "t", Budget: 1, Deadline: "2025-12-01"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateProject(ctx, client, in)
			requireKind(t, err, KindValidation)
		})
	}

	p, err := f.svc.CreateProject(ctx, client, valid)
	require.NoError(t, err)
	require.Equal(t, "Roof repair", p.Title)
	require.Equal(t, models.ProjectOpen, p.Status)
	require.Equal(t, "2025-12-01", p.Deadline.Format(DeadlineLayout))

	open, err := f.svc.ListOpenProjects(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)

	mine, err := f.svc.ListClientProjects(ctx, client, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
}

func TestUpdateProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, _, awarded, _ := f.awarded(t)
	other := f.user(t, "other-client", models.RoleClient)
	open := f.project(t, client)

	edit := NewProject{Title: "New title", Description: "New description", Budget: 800, Deadline: "2031-06-30"}

	_, err := f.svc.UpdateProject(ctx, other, open.ID, edit)
	requireKind(t, err, KindForbidden)

	updated, err := f.svc.UpdateProject(ctx, client, open.ID, edit)
	require.NoError(t, err)
	require.Equal(t, "New title", updated.Title)

	got, err := f.svc.GetProject(ctx, open.ID)
	require.NoError(t, err)
	require.Equal(t, 800.0, got.Budget)

	_, err = f.svc.UpdateProject(ctx, client, awarded.ID, edit)
	requireKind(t, err, KindConflict)

	_, err = f.svc.GetProject(ctx, 424242)
	requireKind(t, err, KindNotFound)
}

// TestRoofRepairScenario walks one project from posting to reviews.
func TestRoofRepairScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	a := f.user(t, "contractor-a", models.RoleContractor)
	b := f.user(t, "contractor-b", models.RoleContractor)

	project, err := f.svc.CreateProject(ctx, client, NewProject{
		Title:       "Roof repair",
		Description: "Fix the leaking roof",
		Budget:      5000,
		Deadline:    "2025-12-01",
	})
	require.NoError(t, err)

	bidA := f.bid(t, a, project.ID, 4000)
	bidB := f.bid(t, b, project.ID, 4500)

	_, err = f.svc.AcceptBid(ctx, client, bidA.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidAccepted, f.bidStatus(t, bidA.ID))
	require.Equal(t, models.BidRejected, f.bidStatus(t, bidB.ID))
	require.Equal(t, models.ProjectInProgress, f.projectStatus(t, project.ID))

	_, err = f.svc.AcceptBid(ctx, client, bidB.ID)
	requireKind(t, err, KindConflict)

	_, err = f.svc.UploadDeliverable(ctx, a, project.ID, Upload{Filename: "plan.pdf", Data: []byte("%PDF-1.4")})
	require.NoError(t, err)
	require.Equal(t, models.ProjectSubmitted, f.projectStatus(t, project.ID))

	issue, err := f.svc.CreateIssue(ctx, client, project.ID, "fix gutter", "")
	require.NoError(t, err)

	_, err = f.svc.CompleteProject(ctx, client, project.ID)
	requireKind(t, err, KindConflict)
	require.Equal(t, 1, OpenCountOf(err))

	_, err = f.svc.CloseIssue(ctx, client, issue.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteProject(ctx, client, project.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProjectCompleted, f.projectStatus(t, project.ID))
	require.Equal(t, models.BidCompleted, f.bidStatus(t, bidA.ID))

	_, err = f.svc.SubmitReview(ctx, client, project.ID, ReviewInput{R1: 5, R2: 4, R3: 5})
	require.NoError(t, err)
	_, err = f.svc.SubmitReview(ctx, client, project.ID, ReviewInput{R1: 5, R2: 4, R3: 5})
	requireKind(t, err, KindConflict)
}
