package db

import (
	"context"

	"marketplace/models"
)

const projectColumns = `id, title, description, budget, deadline, status, client_id, awarded_bid_id, created_at, updated_at`

func (q *Queries) CreateProject(ctx context.Context, p *models.Project) error {
	p.CreatedAt = now()
	p.UpdatedAt = p.CreatedAt
	if p.Status == "" {
		p.Status = models.ProjectOpen
	}
	id, err := q.insert(ctx, `
        INSERT INTO projects (title, description, budget, deadline, status, client_id, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        RETURNING id`,
		p.Title, p.Description, p.Budget, p.Deadline, p.Status, p.ClientID, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (q *Queries) GetProject(ctx context.Context, id int64) (*models.Project, error) {
	p := &models.Project{}
	if err := q.get(ctx, p, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id); err != nil {
		return nil, err
	}
	return p, nil
}

// LockProject reads a project and, on Postgres, holds its row lock until the
// surrounding transaction ends. sqlite serializes writers on its own.
func (q *Queries) LockProject(ctx context.Context, id int64) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`
	if q.driver == "postgres" {
		query += ` FOR UPDATE`
	}
	p := &models.Project{}
	if err := q.get(ctx, p, query, id); err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateProjectFields edits the client-editable fields of an open project.
func (q *Queries) UpdateProjectFields(ctx context.Context, p *models.Project) (bool, error) {
	p.UpdatedAt = now()
	n, err := q.exec(ctx, `
        UPDATE projects
        SET title = ?, description = ?, budget = ?, deadline = ?, updated_at = ?
        WHERE id = ? AND status = ?`,
		p.Title, p.Description, p.Budget, p.Deadline, p.UpdatedAt, p.ID, models.ProjectOpen)
	return n > 0, err
}

// SetProjectStatus moves a project to status only if it currently holds one
// of from. It reports whether a row changed.
func (q *Queries) SetProjectStatus(ctx context.Context, id int64, status models.ProjectStatus, from ...models.ProjectStatus) (bool, error) {
	query := `UPDATE projects SET status = ?, updated_at = ? WHERE id = ?`
	args := []interface{}{status, now(), id}
	if len(from) > 0 {
		query += ` AND status IN (?)`
		expanded, inArgs, err := expandIn(query, args, from)
		if err != nil {
			return false, err
		}
		query, args = expanded, inArgs
	}
	n, err := q.exec(ctx, query, args...)
	return n > 0, err
}

func (q *Queries) SetAwardedBid(ctx context.Context, projectID, bidID int64) error {
	_, err := q.exec(ctx, `UPDATE projects SET awarded_bid_id = ?, updated_at = ? WHERE id = ?`, bidID, now(), projectID)
	return err
}

func (q *Queries) ListProjectsByStatus(ctx context.Context, status models.ProjectStatus, limit, offset int) ([]models.Project, error) {
	projects := []models.Project{}
	err := q.selectAll(ctx, &projects, `
        SELECT `+projectColumns+` FROM projects
        WHERE status = ?
        ORDER BY id DESC
        LIMIT ? OFFSET ?`, status, limit, offset)
	return projects, err
}

func (q *Queries) ListClientProjects(ctx context.Context, clientID int64, limit, offset int) ([]models.Project, error) {
	projects := []models.Project{}
	err := q.selectAll(ctx, &projects, `
        SELECT `+projectColumns+` FROM projects
        WHERE client_id = ?
        ORDER BY id DESC
        LIMIT ? OFFSET ?`, clientID, limit, offset)
	return projects, err
}
