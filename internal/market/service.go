// Package market implements the project, bid and deliverable state machine,
// the issue tracker gating completion, and post-completion reviews.
package market

import (
	"context"
	"errors"
	"io"
	"log"

	"marketplace/db"
	"marketplace/internal/blob"
	"marketplace/internal/journal"
	"marketplace/models"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Service struct {
	store   *db.Storage
	blobs   blob.Store
	journal *journal.Journal
	log     *log.Logger
}

func NewService(store *db.Storage, blobs blob.Store, j *journal.Journal, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Service{store: store, blobs: blobs, journal: j, log: logger}
}

// inTx runs fn in one store transaction. Guard errors raised by fn pass
// through unchanged; anything else rolls back and becomes internal.
func (s *Service) inTx(ctx context.Context, msg string, fn func(q *db.Queries) error) error {
	return classify(msg, s.store.InTx(ctx, fn))
}

func loadProject(ctx context.Context, q *db.Queries, id int64) (*models.Project, error) {
	p, err := q.GetProject(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound("project %d not found", id)
	}
	if err != nil {
		return nil, internal("load project", err)
	}
	return p, nil
}

func lockProject(ctx context.Context, q *db.Queries, id int64) (*models.Project, error) {
	p, err := q.LockProject(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound("project %d not found", id)
	}
	if err != nil {
		return nil, internal("lock project", err)
	}
	return p, nil
}

func loadBid(ctx context.Context, q *db.Queries, id int64) (*models.Bid, error) {
	b, err := q.GetBid(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound("bid %d not found", id)
	}
	if err != nil {
		return nil, internal("load bid", err)
	}
	return b, nil
}

func loadIssue(ctx context.Context, q *db.Queries, id int64) (*models.Issue, error) {
	i, err := q.GetIssue(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, notFound("issue %d not found", id)
	}
	if err != nil {
		return nil, internal("load issue", err)
	}
	return i, nil
}

// winningBid returns the project's accepted or completed bid, or nil.
func winningBid(ctx context.Context, q *db.Queries, projectID int64) (*models.Bid, error) {
	b, err := q.GetWinningBid(ctx, projectID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, internal("load winning bid", err)
	}
	return b, nil
}

// requireOwner checks that p is the client who owns project.
func requireOwner(p Principal, project *models.Project) error {
	if !p.IsClient() || project.ClientID != p.UserID {
		return forbidden("only the project's client may do this")
	}
	return nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
