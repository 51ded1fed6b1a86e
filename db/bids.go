package db

import (
	"context"

	"marketplace/models"
)

const bidColumns = `id, project_id, contractor_id, price, status, created_at, updated_at`

func (q *Queries) CreateBid(ctx context.Context, b *models.Bid) error {
	b.CreatedAt = now()
	b.UpdatedAt = b.CreatedAt
	id, err := q.insert(ctx, `
        INSERT INTO bids (project_id, contractor_id, price, status, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING id`,
		b.ProjectID, b.ContractorID, b.Price, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (q *Queries) GetBid(ctx context.Context, id int64) (*models.Bid, error) {
	b := &models.Bid{}
	if err := q.get(ctx, b, `SELECT `+bidColumns+` FROM bids WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return b, nil
}

func (q *Queries) GetBidByContractor(ctx context.Context, projectID, contractorID int64) (*models.Bid, error) {
	b := &models.Bid{}
	err := q.get(ctx, b, `SELECT `+bidColumns+` FROM bids WHERE project_id = ? AND contractor_id = ?`, projectID, contractorID)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ResubmitBid resets an existing bid to pending with a new price.
func (q *Queries) ResubmitBid(ctx context.Context, b *models.Bid) error {
	b.UpdatedAt = now()
	b.Status = models.BidPending
	_, err := q.exec(ctx, `UPDATE bids SET price = ?, status = ?, updated_at = ? WHERE id = ?`,
		b.Price, b.Status, b.UpdatedAt, b.ID)
	return err
}

// SetBidStatus moves a bid to status only if it currently holds one of from.
func (q *Queries) SetBidStatus(ctx context.Context, id int64, status models.BidStatus, from ...models.BidStatus) (bool, error) {
	query := `UPDATE bids SET status = ?, updated_at = ? WHERE id = ?`
	args := []interface{}{status, now(), id}
	if len(from) > 0 {
		var err error
		query, args, err = expandIn(query+` AND status IN (?)`, args, from)
		if err != nil {
			return false, err
		}
	}
	n, err := q.exec(ctx, query, args...)
	return n > 0, err
}

// RejectPendingSiblings rejects every pending bid on the project except keepID.
func (q *Queries) RejectPendingSiblings(ctx context.Context, projectID, keepID int64) (int64, error) {
	return q.exec(ctx, `
        UPDATE bids SET status = ?, updated_at = ?
        WHERE project_id = ? AND id <> ? AND status = ?`,
		models.BidRejected, now(), projectID, keepID, models.BidPending)
}

// TransitionProjectBids moves every bid of the project in status from to status to.
func (q *Queries) TransitionProjectBids(ctx context.Context, projectID int64, from, to models.BidStatus) (int64, error) {
	return q.exec(ctx, `UPDATE bids SET status = ?, updated_at = ? WHERE project_id = ? AND status = ?`,
		to, now(), projectID, from)
}

func (q *Queries) CountBidsInStatus(ctx context.Context, projectID int64, statuses ...models.BidStatus) (int, error) {
	query, args, err := expandIn(`SELECT COUNT(1) FROM bids WHERE project_id = ? AND status IN (?)`,
		[]interface{}{projectID}, statuses)
	if err != nil {
		return 0, err
	}
	var count int
	err = q.get(ctx, &count, query, args...)
	return count, err
}

// CountOtherBidsInStatus counts bids on the project, other than bidID, in one of statuses.
func (q *Queries) CountOtherBidsInStatus(ctx context.Context, projectID, bidID int64, statuses ...models.BidStatus) (int, error) {
	query, args, err := expandIn(`SELECT COUNT(1) FROM bids WHERE project_id = ? AND id <> ? AND status IN (?)`,
		[]interface{}{projectID, bidID}, statuses)
	if err != nil {
		return 0, err
	}
	var count int
	err = q.get(ctx, &count, query, args...)
	return count, err
}

// GetWinningBid returns the project's bid in accepted or completed status.
func (q *Queries) GetWinningBid(ctx context.Context, projectID int64) (*models.Bid, error) {
	b := &models.Bid{}
	err := q.get(ctx, b, `
        SELECT `+bidColumns+` FROM bids
        WHERE project_id = ? AND status IN (?, ?)
        ORDER BY id DESC LIMIT 1`,
		projectID, models.BidAccepted, models.BidCompleted)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (q *Queries) ListProjectBids(ctx context.Context, projectID int64) ([]models.Bid, error) {
	bids := []models.Bid{}
	err := q.selectAll(ctx, &bids, `SELECT `+bidColumns+` FROM bids WHERE project_id = ? ORDER BY id DESC`, projectID)
	return bids, err
}

func (q *Queries) ListContractorBids(ctx context.Context, contractorID int64, limit, offset int) ([]models.Bid, error) {
	bids := []models.Bid{}
	err := q.selectAll(ctx, &bids, `
        SELECT `+bidColumns+` FROM bids
        WHERE contractor_id = ?
        ORDER BY updated_at DESC, id DESC
        LIMIT ? OFFSET ?`, contractorID, limit, offset)
	return bids, err
}
