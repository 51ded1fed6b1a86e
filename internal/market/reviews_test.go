package market

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"marketplace/models"
)

func completedProject(t *testing.T, f *fixture) (Principal, Principal, *models.Project) {
	t.Helper()
	client, contractor, project, _ := f.awarded(t)
	_, err := f.svc.CompleteProject(context.Background(), client, project.ID)
	require.NoError(t, err)
	return client, contractor, project
}

func TestSubmitReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, contractor, project := completedProject(t, f)

	r, err := f.svc.SubmitReview(ctx, client, project.ID, ReviewInput{R1: 5, R2: 4, R3: 3, Comment: "Great"})
	require.NoError(t, err)
	require.Equal(t, contractor.UserID, r.RevieweeID)
	require.Equal(t, models.RoleContractor, r.TargetRole)

	_, err = f.svc.SubmitReview(ctx, client, project.ID, ReviewInput{R1: 1, R2: 1, R3: 1})
	requireKind(t, err, KindConflict)

	r, err = f.svc.SubmitReview(ctx, contractor, project.ID, ReviewInput{R1: 4, R2: 4, R3: 4})
	require.NoError(t, err)
	require.Equal(t, client.UserID, r.RevieweeID)
	require.Equal(t, models.RoleClient, r.TargetRole)

	rep, err := f.svc.Reputation(ctx, contractor.UserID, models.RoleContractor)
	require.NoError(t, err)
	require.Equal(t, 1, rep.Count)
	require.InDelta(t, 5.0, rep.Rating1, 0.001)
	require.InDelta(t, 4.0, rep.Overall, 0.001)

	reviews, err := f.svc.ListReviews(ctx, client.UserID, models.RoleClient)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
}

func TestSubmitReviewGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, contractor, project, _ := f.awarded(t)
	outsider := f.user(t, "outsider", models.RoleContractor)
	good := ReviewInput{R1: 3, R2: 3, R3: 3}

	_, err := f.svc.SubmitReview(ctx, client, project.ID, good)
	requireKind(t, err, KindConflict)

	_, err = f.svc.CompleteProject(ctx, client, project.ID)
	require.NoError(t, err)

	_, err = f.svc.SubmitReview(ctx, outsider, project.ID, good)
	requireKind(t, err, KindForbidden)
	_, err = f.svc.SubmitReview(ctx, contractor, project.ID, ReviewInput{R1: 6, R2: 3, R3: 3})
	requireKind(t, err, KindValidation)
	_, err = f.svc.SubmitReview(ctx, contractor, project.ID, ReviewInput{R1: 0, R2: 3, R3: 3})
	requireKind(t, err, KindValidation)
}

func TestReputationWithoutReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, "fresh", models.RoleContractor)

	rep, err := f.svc.Reputation(ctx, u.UserID, models.RoleContractor)
	require.NoError(t, err)
	require.Equal(t, 0, rep.Count)
	require.Zero(t, rep.Overall)

	_, err = f.svc.Reputation(ctx, u.UserID, models.Role("admin"))
	requireKind(t, err, KindValidation)
}
