package db

import (
	"context"
	"database/sql"

	"marketplace/models"
)

const issueColumns = `id, project_id, title, description, status, created_by, created_at, updated_at, closed_at`

func (q *Queries) CreateIssue(ctx context.Context, i *models.Issue) error {
	i.CreatedAt = now()
	i.UpdatedAt = i.CreatedAt
	if i.Status == "" {
		i.Status = models.IssueOpen
	}
	id, err := q.insert(ctx, `
        INSERT INTO issues (project_id, title, description, status, created_by, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		i.ProjectID, i.Title, i.Description, i.Status, i.CreatedBy, i.CreatedAt, i.UpdatedAt)
	if err != nil {
		return err
	}
	i.ID = id
	return nil
}

func (q *Queries) GetIssue(ctx context.Context, id int64) (*models.Issue, error) {
	i := &models.Issue{}
	if err := q.get(ctx, i, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return i, nil
}

func (q *Queries) ListIssues(ctx context.Context, projectID int64) ([]models.Issue, error) {
	issues := []models.Issue{}
	err := q.selectAll(ctx, &issues, `SELECT `+issueColumns+` FROM issues WHERE project_id = ? ORDER BY id ASC`, projectID)
	return issues, err
}

// SetIssueStatus moves an issue to status if it currently holds one of from.
// Closing stamps closed_at.
func (q *Queries) SetIssueStatus(ctx context.Context, id int64, status models.IssueStatus, from ...models.IssueStatus) (bool, error) {
	ts := now()
	closedAt := sql.NullTime{}
	if status == models.IssueClosed {
		closedAt = sql.NullTime{Time: ts, Valid: true}
	}
	query := `UPDATE issues SET status = ?, updated_at = ?, closed_at = ? WHERE id = ?`
	args := []interface{}{status, ts, closedAt, id}
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

func (q *Queries) DeleteIssue(ctx context.Context, id int64) error {
	n, err := q.exec(ctx, `DELETE FROM issues WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountOpenIssues counts issues that still block completion.
func (q *Queries) CountOpenIssues(ctx context.Context, projectID int64) (int, error) {
	var count int
	err := q.get(ctx, &count, `SELECT COUNT(1) FROM issues WHERE project_id = ? AND status IN (?, ?)`,
		projectID, models.IssueOpen, models.IssueInProgress)
	return count, err
}

func (q *Queries) CreateIssueComment(ctx context.Context, c *models.IssueComment) error {
	c.CreatedAt = now()
	id, err := q.insert(ctx, `
        INSERT INTO issue_comments (issue_id, author_id, content, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`, c.IssueID, c.AuthorID, c.Content, c.CreatedAt)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (q *Queries) ListIssueComments(ctx context.Context, issueID int64) ([]models.IssueComment, error) {
	comments := []models.IssueComment{}
	err := q.selectAll(ctx, &comments, `
        SELECT id, issue_id, author_id, content, created_at FROM issue_comments
        WHERE issue_id = ? ORDER BY id ASC`, issueID)
	return comments, err
}

func (q *Queries) CreateIssueAttachment(ctx context.Context, a *models.IssueAttachment) error {
	if a.UploadedAt.IsZero() {
		a.UploadedAt = now()
	}
	id, err := q.insert(ctx, `
        INSERT INTO issue_attachments (issue_id, filename, original_filename, storage_path, size_bytes, uploaded_by, uploaded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		a.IssueID, a.Filename, a.OriginalFilename, a.StoragePath, a.SizeBytes, a.UploadedBy, a.UploadedAt)
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

const attachmentColumns = `id, issue_id, filename, original_filename, storage_path, size_bytes, uploaded_by, uploaded_at`

func (q *Queries) ListIssueAttachments(ctx context.Context, issueID int64) ([]models.IssueAttachment, error) {
	attachments := []models.IssueAttachment{}
	err := q.selectAll(ctx, &attachments, `
        SELECT `+attachmentColumns+` FROM issue_attachments
        WHERE issue_id = ? ORDER BY id ASC`, issueID)
	return attachments, err
}

func (q *Queries) LatestIssueAttachment(ctx context.Context, issueID int64) (*models.IssueAttachment, error) {
	a := &models.IssueAttachment{}
	err := q.get(ctx, a, `
        SELECT `+attachmentColumns+` FROM issue_attachments
        WHERE issue_id = ? ORDER BY id DESC LIMIT 1`, issueID)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// HasIssueAttachmentAt reports whether the issue already holds the stored file.
func (q *Queries) HasIssueAttachmentAt(ctx context.Context, issueID int64, storagePath string) (bool, error) {
	var count int
	err := q.get(ctx, &count, `SELECT COUNT(1) FROM issue_attachments WHERE issue_id = ? AND storage_path = ?`, issueID, storagePath)
	return count > 0, err
}
