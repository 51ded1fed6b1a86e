package market

import (
	"context"
	"errors"
	"strings"

	"marketplace/db"
	"marketplace/models"
)

// ReviewInput carries three 1..5 ratings and a free-text comment.
type ReviewInput struct {
	R1      int    `json:"rating1"`
	R2      int    `json:"rating2"`
	R3      int    `json:"rating3"`
	Comment string `json:"comment"`
}

func (in ReviewInput) validate() error {
	for _, r := range []int{in.R1, in.R2, in.R3} {
		if r < 1 || r > 5 {
			return invalid("ratings must be between 1 and 5")
		}
	}
	return nil
}

// SubmitReview records p's review of the other party of a completed
// project. Each party reviews once per project.
func (s *Service) SubmitReview(ctx context.Context, p Principal, projectID int64, in ReviewInput) (*models.Review, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, s.store.Queries, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectCompleted {
		return nil, conflict("project %d is %s; reviews open after completion", projectID, project.Status)
	}
	bid, err := winningBid(ctx, s.store.Queries, projectID)
	if err != nil {
		return nil, err
	}

	review := &models.Review{
		ProjectID:  projectID,
		ReviewerID: p.UserID,
		Rating1:    in.R1,
		Rating2:    in.R2,
		Rating3:    in.R3,
		Comment:    strings.TrimSpace(in.Comment),
	}
	switch {
	case p.IsClient() && project.ClientID == p.UserID:
		if bid == nil {
			return nil, conflict("project %d has no contractor to review", projectID)
		}
		review.RevieweeID = bid.ContractorID
		review.TargetRole = models.RoleContractor
	case p.IsContractor() && bid != nil && bid.ContractorID == p.UserID:
		review.RevieweeID = project.ClientID
		review.TargetRole = models.RoleClient
	default:
		return nil, forbidden("only the client and the contractor of project %d may review", projectID)
	}

	exists, err := s.store.ReviewExists(ctx, projectID, p.UserID)
	if err != nil {
		return nil, internal("check review", err)
	}
	if exists {
		return nil, conflict("you already reviewed project %d", projectID)
	}
	err = s.store.CreateReview(ctx, review)
	if errors.Is(err, db.ErrConflict) {
		return nil, conflict("you already reviewed project %d", projectID)
	}
	if err != nil {
		return nil, internal("create review", err)
	}
	s.log.Printf("user %d reviewed user %d on project %d", review.ReviewerID, review.RevieweeID, projectID)
	return review, nil
}

// Reputation summarizes the reviews about userID in role. A user with no
// reviews gets a zero count and zero means.
func (s *Service) Reputation(ctx context.Context, userID int64, role models.Role) (*models.ReputationSummary, error) {
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	sum, err := s.store.Reputation(ctx, userID, role)
	if err != nil {
		return nil, internal("reputation", err)
	}
	return sum, nil
}

func (s *Service) ListReviews(ctx context.Context, userID int64, role models.Role) ([]models.Review, error) {
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	reviews, err := s.store.ListReviewsAbout(ctx, userID, role)
	if err != nil {
		return nil, internal("list reviews", err)
	}
	return reviews, nil
}
