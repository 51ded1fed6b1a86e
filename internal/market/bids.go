package market

import (
	"context"
	"errors"

	"marketplace/db"
	"marketplace/models"
)

// SubmitBid creates the contractor's bid on an open project, or resets an
// existing one to pending with the new price. Accepted bids are final.
func (s *Service) SubmitBid(ctx context.Context, p Principal, projectID int64, price float64) (*models.Bid, error) {
	if !p.IsContractor() {
		return nil, forbidden("only contractors can bid")
	}
	if price <= 0 {
		return nil, invalid("price must be positive")
	}

	var bid *models.Bid
	err := s.inTx(ctx, "submit bid", func(q *db.Queries) error {
		project, err := lockProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if project.Status != models.ProjectOpen {
			return forbidden("project is %s and no longer takes bids", project.Status)
		}

		existing, err := q.GetBidByContractor(ctx, projectID, p.UserID)
		switch {
		case errors.Is(err, db.ErrNotFound):
			bid = &models.Bid{
				ProjectID:    projectID,
				ContractorID: p.UserID,
				Price:        price,
				Status:       models.BidPending,
			}
			if err := q.CreateBid(ctx, bid); err != nil {
				if errors.Is(err, db.ErrConflict) {
					return conflict("a bid for this project is already being submitted")
				}
				return err
			}
			return nil
		case err != nil:
			return err
		}

		if existing.Status == models.BidAccepted || existing.Status == models.BidCompleted {
			return forbidden("bid %d is %s and cannot be changed", existing.ID, existing.Status)
		}
		existing.Price = price
		if err := q.ResubmitBid(ctx, existing); err != nil {
			return err
		}
		bid = existing
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// AcceptBid awards the project to bidID. In one transaction the bid becomes
// accepted, every other pending bid is rejected and the project moves to
// in_progress. The project row lock and the one-winner index make a second
// concurrent accept fail with a conflict.
func (s *Service) AcceptBid(ctx context.Context, p Principal, bidID int64) (*models.Bid, error) {
	var bid *models.Bid
	var rejected int64
	err := s.inTx(ctx, "accept bid", func(q *db.Queries) error {
		var err error
		bid, err = loadBid(ctx, q, bidID)
		if err != nil {
			return err
		}
		project, err := lockProject(ctx, q, bid.ProjectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		// re-read under the project lock
		bid, err = loadBid(ctx, q, bidID)
		if err != nil {
			return err
		}
		if bid.Status != models.BidPending {
			return conflict("bid %d is %s, only pending bids can be accepted", bid.ID, bid.Status)
		}
		if project.Status != models.ProjectOpen {
			return conflict("project is %s, bids can only be accepted while open", project.Status)
		}
		winners, err := q.CountBidsInStatus(ctx, project.ID, models.BidAccepted, models.BidCompleted)
		if err != nil {
			return err
		}
		if winners > 0 {
			return conflict("project %d already has an accepted bid", project.ID)
		}

		ok, err := q.SetBidStatus(ctx, bid.ID, models.BidAccepted, models.BidPending)
		if errors.Is(err, db.ErrConflict) {
			return conflict("project %d already has an accepted bid", project.ID)
		}
		if err != nil {
			return err
		}
		if !ok {
			return conflict("bid %d is no longer pending", bid.ID)
		}
		if rejected, err = q.RejectPendingSiblings(ctx, project.ID, bid.ID); err != nil {
			return err
		}
		if err := q.SetAwardedBid(ctx, project.ID, bid.ID); err != nil {
			return err
		}
		ok, err = q.SetProjectStatus(ctx, project.ID, models.ProjectInProgress, models.ProjectOpen)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("project %d is no longer open", project.ID)
		}
		bid.Status = models.BidAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Printf("bid %d accepted on project %d, %d competing bids rejected", bid.ID, bid.ProjectID, rejected)
	return bid, nil
}

// RejectBid turns down a pending bid or sends an accepted delivery back.
// The project status is left alone; a rejected awarded bid may re-upload.
func (s *Service) RejectBid(ctx context.Context, p Principal, bidID int64) (*models.Bid, error) {
	var bid *models.Bid
	err := s.inTx(ctx, "reject bid", func(q *db.Queries) error {
		var err error
		bid, err = loadBid(ctx, q, bidID)
		if err != nil {
			return err
		}
		project, err := lockProject(ctx, q, bid.ProjectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		ok, err := q.SetBidStatus(ctx, bid.ID, models.BidRejected, models.BidPending, models.BidAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("bid %d is %s and cannot be rejected", bid.ID, bid.Status)
		}
		bid.Status = models.BidRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bid, nil
}

// CompleteProject closes the project once no revision issue is open. The
// project and its accepted bid become completed together.
func (s *Service) CompleteProject(ctx context.Context, p Principal, projectID int64) (*models.Project, error) {
	var project *models.Project
	var completed int64
	err := s.inTx(ctx, "complete project", func(q *db.Queries) error {
		var err error
		project, err = lockProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		if project.Status != models.ProjectInProgress && project.Status != models.ProjectSubmitted {
			return conflict("project is %s and cannot be completed", project.Status)
		}
		open, err := q.CountOpenIssues(ctx, projectID)
		if err != nil {
			return err
		}
		if open > 0 {
			e := conflict("project has %d open issue(s)", open)
			e.OpenCount = open
			return e
		}
		ok, err := q.SetProjectStatus(ctx, projectID, models.ProjectCompleted, models.ProjectInProgress, models.ProjectSubmitted)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("project %d changed state", projectID)
		}
		if completed, err = q.TransitionProjectBids(ctx, projectID, models.BidAccepted, models.BidCompleted); err != nil {
			return err
		}
		project.Status = models.ProjectCompleted
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Printf("project %d completed, %d bid(s) completed", projectID, completed)
	return project, nil
}

// ListProjectBids returns every bid on the project to its client.
func (s *Service) ListProjectBids(ctx context.Context, p Principal, projectID int64) ([]models.Bid, error) {
	project, err := loadProject(ctx, s.store.Queries, projectID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p, project); err != nil {
		return nil, err
	}
	bids, err := s.store.ListProjectBids(ctx, projectID)
	if err != nil {
		return nil, internal("list project bids", err)
	}
	return bids, nil
}

func (s *Service) ListContractorBids(ctx context.Context, p Principal, limit, offset int) ([]models.Bid, error) {
	if !p.IsContractor() {
		return nil, forbidden("only contractors have bids")
	}
	limit, offset = pageBounds(limit, offset)
	bids, err := s.store.ListContractorBids(ctx, p.UserID, limit, offset)
	if err != nil {
		return nil, internal("list contractor bids", err)
	}
	return bids, nil
}
