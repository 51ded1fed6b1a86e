package db

import (
	"context"

	"marketplace/models"
)

func (q *Queries) CreateMessage(ctx context.Context, m *models.Message) error {
	m.CreatedAt = now()
	id, err := q.insert(ctx, `
        INSERT INTO messages (project_id, sender_id, content, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`, m.ProjectID, m.SenderID, m.Content, m.CreatedAt)
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (q *Queries) ListMessages(ctx context.Context, projectID int64) ([]models.Message, error) {
	msgs := []models.Message{}
	err := q.selectAll(ctx, &msgs, `
        SELECT id, project_id, sender_id, content, created_at FROM messages
        WHERE project_id = ? ORDER BY id ASC`, projectID)
	return msgs, err
}

// HasBidOnProject reports whether the contractor ever bid on the project.
func (q *Queries) HasBidOnProject(ctx context.Context, projectID, contractorID int64) (bool, error) {
	var count int
	err := q.get(ctx, &count, `SELECT COUNT(1) FROM bids WHERE project_id = ? AND contractor_id = ?`, projectID, contractorID)
	return count > 0, err
}
