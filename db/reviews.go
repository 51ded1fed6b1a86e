package db

import (
	"context"

	"marketplace/models"
)

const reviewColumns = `id, project_id, reviewer_id, reviewee_id, target_role, rating_1, rating_2, rating_3, comment, created_at`

func (q *Queries) CreateReview(ctx context.Context, r *models.Review) error {
	r.CreatedAt = now()
	id, err := q.insert(ctx, `
        INSERT INTO reviews
            (project_id, reviewer_id, reviewee_id, target_role, rating_1, rating_2, rating_3, comment, created_at)
        VALUES
            (?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		r.ProjectID, r.ReviewerID, r.RevieweeID, r.TargetRole, r.Rating1, r.Rating2, r.Rating3, r.Comment, r.CreatedAt)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

func (q *Queries) ReviewExists(ctx context.Context, projectID, reviewerID int64) (bool, error) {
	var count int
	err := q.get(ctx, &count, `SELECT COUNT(1) FROM reviews WHERE project_id = ? AND reviewer_id = ?`, projectID, reviewerID)
	return count > 0, err
}

func (q *Queries) ListReviewsAbout(ctx context.Context, userID int64, role models.Role) ([]models.Review, error) {
	reviews := []models.Review{}
	err := q.selectAll(ctx, &reviews, `
        SELECT `+reviewColumns+` FROM reviews
        WHERE reviewee_id = ? AND target_role = ?
        ORDER BY id DESC`, userID, role)
	return reviews, err
}

// Reputation averages every review about the user in the given role.
func (q *Queries) Reputation(ctx context.Context, userID int64, role models.Role) (*models.ReputationSummary, error) {
	s := &models.ReputationSummary{UserID: userID, Role: role}
	err := q.get(ctx, s, `
        SELECT
            COUNT(1) AS review_count,
            COALESCE(AVG(rating_1), 0) AS avg_rating_1,
            COALESCE(AVG(rating_2), 0) AS avg_rating_2,
            COALESCE(AVG(rating_3), 0) AS avg_rating_3
        FROM reviews
        WHERE reviewee_id = ? AND target_role = ?`,
		userID, role)
	if err != nil {
		return nil, err
	}
	if s.Count > 0 {
		s.Overall = (s.Rating1 + s.Rating2 + s.Rating3) / 3
	}
	return s, nil
}
