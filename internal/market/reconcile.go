package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"

	"marketplace/db"
	"marketplace/internal/journal"
	"marketplace/models"
)

type ReconcileReport struct {
	Replayed  int `json:"replayed"`
	Remaining int `json:"remaining"`
}

// Reconcile replays journaled uploads into the store and drops the entries
// that made it. Entries already recorded are dropped without a new version.
// Per-entry failures are collected; the failing entries stay journaled.
func (s *Service) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if s.journal == nil {
		return report, nil
	}
	entries, err := s.journal.List()
	if err != nil {
		return report, fmt.Errorf("reconcile: %w", err)
	}

	var errs error
	var done []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		if err := s.replay(ctx, e); err != nil {
			s.log.Printf("reconcile: entry %s for bid %d: %v", e.ID, e.BidID, err)
			errs = multierr.Append(errs, fmt.Errorf("entry %s: %w", e.ID, err))
			continue
		}
		done = append(done, e.ID)
	}

	if err := s.journal.Remove(done...); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("reconcile: prune journal: %w", err))
	} else {
		report.Replayed = len(done)
	}
	report.Remaining = len(entries) - report.Replayed
	s.log.Printf("reconcile: replayed %d, remaining %d", report.Replayed, report.Remaining)
	return report, errs
}

// replay records the entry's submission and, when the entry asks for it,
// the issue attachment and the bid re-acceptance that the failed upload
// would have written. Each step is skipped when already applied.
func (s *Service) replay(ctx context.Context, e journal.Entry) error {
	if !s.blobs.Exists(e.StoragePath) {
		return fmt.Errorf("artifact %s is missing", e.StoragePath)
	}
	sub := submissionFromEntry(e)
	backoff := retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.store.InTx(ctx, func(q *db.Queries) error {
			seen, err := q.HasSubmissionAt(ctx, sub.BidID, sub.StoragePath)
			if err != nil {
				return err
			}
			if !seen {
				sub.ID = 0
				if err := q.AppendSubmission(ctx, &sub); err != nil {
					return err
				}
			}
			if e.IssueID != 0 {
				if err := s.replayAttachment(ctx, q, e); err != nil {
					return err
				}
			}
			if e.Promote {
				if err := s.replayPromotion(ctx, q, e); err != nil {
					return err
				}
			}
			return markReplayedSubmitted(ctx, q, e)
		})
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

func (s *Service) replayAttachment(ctx context.Context, q *db.Queries, e journal.Entry) error {
	_, err := q.GetIssue(ctx, e.IssueID)
	if errors.Is(err, db.ErrNotFound) {
		s.log.Printf("reconcile: issue %d was deleted, attachment %s not restored", e.IssueID, e.Filename)
		return nil
	}
	if err != nil {
		return err
	}
	has, err := q.HasIssueAttachmentAt(ctx, e.IssueID, e.StoragePath)
	if err != nil || has {
		return err
	}
	return q.CreateIssueAttachment(ctx, &models.IssueAttachment{
		IssueID:          e.IssueID,
		Filename:         e.Filename,
		OriginalFilename: e.OriginalFilename,
		StoragePath:      e.StoragePath,
		SizeBytes:        e.SizeBytes,
		UploadedBy:       e.UploaderID,
		UploadedAt:       e.Timestamp,
	})
}

// replayPromotion re-accepts the entry's bid under the same rules as an
// upload: still rejected, still awarded, no other accepted bid, and the
// project still taking deliverables. Otherwise the version stays as history.
func (s *Service) replayPromotion(ctx context.Context, q *db.Queries, e journal.Entry) error {
	project, err := q.LockProject(ctx, e.ProjectID)
	if err != nil {
		return err
	}
	bid, err := q.GetBid(ctx, e.BidID)
	if err != nil {
		return err
	}
	if bid.Status != models.BidRejected {
		return nil
	}
	if !project.AwardedBidID.Valid || project.AwardedBidID.Int64 != bid.ID {
		s.log.Printf("reconcile: bid %d no longer holds project %d", bid.ID, project.ID)
		return nil
	}
	if project.Status != models.ProjectInProgress && project.Status != models.ProjectSubmitted {
		return nil
	}
	others, err := q.CountOtherBidsInStatus(ctx, project.ID, bid.ID, models.BidAccepted)
	if err != nil || others > 0 {
		return err
	}
	ok, err := q.SetBidStatus(ctx, bid.ID, models.BidAccepted, models.BidRejected)
	if ok {
		s.log.Printf("reconcile: bid %d re-accepted on project %d", bid.ID, project.ID)
	}
	return err
}

// markReplayedSubmitted moves the project to submitted when the entry's bid
// is the accepted one, as the original upload would have.
func markReplayedSubmitted(ctx context.Context, q *db.Queries, e journal.Entry) error {
	bid, err := q.GetBid(ctx, e.BidID)
	if err != nil {
		return err
	}
	if bid.Status != models.BidAccepted {
		return nil
	}
	_, err = q.SetProjectStatus(ctx, e.ProjectID, models.ProjectSubmitted, models.ProjectInProgress)
	return err
}
