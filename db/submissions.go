package db

import (
	"context"

	"marketplace/models"
)

const submissionColumns = `id, bid_id, project_id, version, filename, original_filename, storage_path, size_bytes, source, uploaded_by, uploaded_at`

// AppendSubmission stores s as the next version of its bid's deliverable.
// Two writers racing for the same version surface as ErrConflict.
func (q *Queries) AppendSubmission(ctx context.Context, s *models.Submission) error {
	var latest int
	err := q.get(ctx, &latest, `SELECT COALESCE(MAX(version), 0) FROM submissions WHERE bid_id = ?`, s.BidID)
	if err != nil {
		return err
	}
	s.Version = latest + 1
	if s.UploadedAt.IsZero() {
		s.UploadedAt = now()
	}
	if s.Source == "" {
		s.Source = models.SourceUpload
	}
	id, err := q.insert(ctx, `
        INSERT INTO submissions
            (bid_id, project_id, version, filename, original_filename, storage_path, size_bytes, source, uploaded_by, uploaded_at)
        VALUES
            (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		s.BidID, s.ProjectID, s.Version, s.Filename, s.OriginalFilename, s.StoragePath, s.SizeBytes, s.Source, s.UploadedBy, s.UploadedAt)
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// LatestSubmission returns the highest version recorded for the bid.
func (q *Queries) LatestSubmission(ctx context.Context, bidID int64) (*models.Submission, error) {
	s := &models.Submission{}
	err := q.get(ctx, s, `
        SELECT `+submissionColumns+` FROM submissions
        WHERE bid_id = ?
        ORDER BY version DESC LIMIT 1`, bidID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (q *Queries) ListSubmissions(ctx context.Context, bidID int64) ([]models.Submission, error) {
	subs := []models.Submission{}
	err := q.selectAll(ctx, &subs, `SELECT `+submissionColumns+` FROM submissions WHERE bid_id = ? ORDER BY version ASC`, bidID)
	return subs, err
}

// HasSubmissionAt reports whether the stored artifact path is already recorded.
func (q *Queries) HasSubmissionAt(ctx context.Context, bidID int64, storagePath string) (bool, error) {
	var count int
	err := q.get(ctx, &count, `SELECT COUNT(1) FROM submissions WHERE bid_id = ? AND storage_path = ?`, bidID, storagePath)
	return count > 0, err
}
