package market

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"marketplace/models"
)

func TestSubmitBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	contractor := f.user(t, "contractor", models.RoleContractor)
	project := f.project(t, client)

	t.Run("client cannot bid", func(t *testing.T) {
		_, err := f.svc.SubmitBid(ctx, client, project.ID, 100)
		requireKind(t, err, KindForbidden)
	})

	t.Run("price must be positive", func(t *testing.T) {
		_, err := f.svc.SubmitBid(ctx, contractor, project.ID, 0)
		requireKind(t, err, KindValidation)
	})

	t.Run("resubmitting updates the same bid", func(t *testing.T) {
		first := f.bid(t, contractor, project.ID, 300)
		second := f.bid(t, contractor, project.ID, 250)
		require.Equal(t, first.ID, second.ID)
		require.Equal(t, 250.0, second.Price)
		require.Equal(t, models.BidPending, second.Status)
	})

	t.Run("rejected bid is reset to pending", func(t *testing.T) {
		other := f.user(t, "other", models.RoleContractor)
		b := f.bid(t, other, project.ID, 280)
		_, err := f.svc.RejectBid(ctx, client, b.ID)
		require.NoError(t, err)

		again := f.bid(t, other, project.ID, 270)
		require.Equal(t, b.ID, again.ID)
		require.Equal(t, 270.0, again.Price)
		require.Equal(t, models.BidPending, f.bidStatus(t, b.ID))
	})
}

func TestSubmitBidOnClosedProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	contractor := f.user(t, "contractor", models.RoleContractor)
	project := f.project(t, client)
	bid := f.bid(t, contractor, project.ID, 100)

	closed, err := f.svc.CloseProject(ctx, client, project.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProjectRejected, closed.Status)
	require.Equal(t, models.BidRejected, f.bidStatus(t, bid.ID))

	late := f.user(t, "late", models.RoleContractor)
	_, err = f.svc.SubmitBid(ctx, late, project.ID, 90)
	requireKind(t, err, KindForbidden)
}

func TestAcceptBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	a := f.user(t, "a", models.RoleContractor)
	b := f.user(t, "b", models.RoleContractor)
	project := f.project(t, client)
	bidA := f.bid(t, a, project.ID, 400)
	bidB := f.bid(t, b, project.ID, 420)

	_, err := f.svc.AcceptBid(ctx, Principal{UserID: client.UserID + 100, Role: models.RoleClient}, bidA.ID)
	requireKind(t, err, KindForbidden)

	accepted, err := f.svc.AcceptBid(ctx, client, bidA.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidAccepted, accepted.Status)
	require.Equal(t, models.BidRejected, f.bidStatus(t, bidB.ID))
	require.Equal(t, models.ProjectInProgress, f.projectStatus(t, project.ID))

	p, err := f.store.GetProject(ctx, project.ID)
	require.NoError(t, err)
	require.True(t, p.AwardedBidID.Valid)
	require.Equal(t, bidA.ID, p.AwardedBidID.Int64)

	_, err = f.svc.AcceptBid(ctx, client, bidA.ID)
	requireKind(t, err, KindConflict)
	_, err = f.svc.AcceptBid(ctx, client, bidB.ID)
	requireKind(t, err, KindConflict)

	_, err = f.svc.AcceptBid(ctx, client, 9999)
	requireKind(t, err, KindNotFound)
}

func TestAcceptBidConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	project := f.project(t, client)

	const bidders = 8
	ids := make([]int64, bidders)
	for i := range ids {
		c := f.user(t, fmt.Sprintf("contractor-%d", i), models.RoleContractor)
		ids[i] = f.bid(t, c, project.ID, float64(100+i)).ID
	}

	var wins, conflicts int32
	var g errgroup.Group
	for _, id := range ids {
		id := id
		g.Go(func() error {
			_, err := f.svc.AcceptBid(ctx, client, id)
			switch KindOf(err) {
			case "":
				atomic.AddInt32(&wins, 1)
			case KindConflict:
				atomic.AddInt32(&conflicts, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	require.EqualValues(t, 1, wins)
	require.EqualValues(t, bidders-1, conflicts)

	n, err := f.store.CountBidsInStatus(ctx, project.ID, models.BidAccepted, models.BidCompleted)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestRejectBid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, contractor, project, bid := f.awarded(t)

	_, err := f.svc.RejectBid(ctx, contractor, bid.ID)
	requireKind(t, err, KindForbidden)

	rejected, err := f.svc.RejectBid(ctx, client, bid.ID)
	require.NoError(t, err)
	require.Equal(t, models.BidRejected, rejected.Status)
	require.Equal(t, models.ProjectInProgress, f.projectStatus(t, project.ID))

	_, err = f.svc.RejectBid(ctx, client, bid.ID)
	requireKind(t, err, KindConflict)
}

func TestCompleteProject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client, contractor, project, bid := f.awarded(t)

	_, err := f.svc.CompleteProject(ctx, contractor, project.ID)
	requireKind(t, err, KindForbidden)

	_, err = f.svc.CreateIssue(ctx, client, project.ID, "Colors", "Use the brand palette")
	require.NoError(t, err)
	_, err = f.svc.CreateIssue(ctx, client, project.ID, "Font", "")
	require.NoError(t, err)

	_, err = f.svc.CompleteProject(ctx, client, project.ID)
	requireKind(t, err, KindConflict)
	require.Equal(t, 2, OpenCountOf(err))

	issues, err := f.svc.ListIssues(ctx, client, project.ID)
	require.NoError(t, err)
	for _, i := range issues {
		_, err := f.svc.CloseIssue(ctx, client, i.ID)
		require.NoError(t, err)
	}

	done, err := f.svc.CompleteProject(ctx, client, project.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProjectCompleted, done.Status)
	require.Equal(t, models.BidCompleted, f.bidStatus(t, bid.ID))

	_, err = f.svc.CompleteProject(ctx, client, project.ID)
	requireKind(t, err, KindConflict)
}

func TestListBids(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.user(t, "client", models.RoleClient)
	contractor := f.user(t, "contractor", models.RoleContractor)
	p1 := f.project(t, client)
	p2 := f.project(t, client)
	f.bid(t, contractor, p1.ID, 10)
	f.bid(t, contractor, p2.ID, 20)

	bids, err := f.svc.ListProjectBids(ctx, client, p1.ID)
	require.NoError(t, err)
	require.Len(t, bids, 1)

	_, err = f.svc.ListProjectBids(ctx, contractor, p1.ID)
	requireKind(t, err, KindForbidden)

	mine, err := f.svc.ListContractorBids(ctx, contractor, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 2)
}
