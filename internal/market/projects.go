package market

import (
	"context"
	"strings"
	"time"

	"marketplace/db"
	"marketplace/models"
)

const DeadlineLayout = "2006-01-02"

// NewProject carries the client-editable fields of a project.
type NewProject struct {
	Title       string
	Description string
	Budget      float64
	Deadline    string
}

func (n NewProject) validate() (NewProject, time.Time, error) {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	if n.Title == "" || n.Description == "" {
		return n, time.Time{}, invalid("title and description are required")
	}
	if len(n.Title) > 200 {
		return n, time.Time{}, invalid("title must be at most 200 characters")
	}
	if n.Budget <= 0 {
		return n, time.Time{}, invalid("budget must be positive")
	}
	deadline, err := time.Parse(DeadlineLayout, strings.TrimSpace(n.Deadline))
	if err != nil {
		return n, time.Time{}, invalid("deadline must be a date in YYYY-MM-DD format")
	}
	return n, deadline, nil
}

func (s *Service) CreateProject(ctx context.Context, p Principal, in NewProject) (*models.Project, error) {
	if !p.IsClient() {
		return nil, forbidden("only clients can post projects")
	}
	in, deadline, err := in.validate()
	if err != nil {
		return nil, err
	}
	project := &models.Project{
		Title:       in.Title,
		Description: in.Description,
		Budget:      in.Budget,
		Deadline:    deadline,
		Status:      models.ProjectOpen,
		ClientID:    p.UserID,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return nil, internal("create project", err)
	}
	return project, nil
}

// UpdateProject edits an open project's fields.
func (s *Service) UpdateProject(ctx context.Context, p Principal, projectID int64, in NewProject) (*models.Project, error) {
	in, deadline, err := in.validate()
	if err != nil {
		return nil, err
	}
	var project *models.Project
	err = s.inTx(ctx, "update project", func(q *db.Queries) error {
		var err error
		project, err = lockProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		if project.Status != models.ProjectOpen {
			return conflict("project is %s; only open projects can be edited", project.Status)
		}
		project.Title = in.Title
		project.Description = in.Description
		project.Budget = in.Budget
		project.Deadline = deadline
		ok, err := q.UpdateProjectFields(ctx, project)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("project is no longer open")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// CloseProject ends an open project without accepting a bid: the project
// becomes rejected and every pending bid is rejected with it.
func (s *Service) CloseProject(ctx context.Context, p Principal, projectID int64) (*models.Project, error) {
	var project *models.Project
	err := s.inTx(ctx, "close project", func(q *db.Queries) error {
		var err error
		project, err = lockProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		if project.Status != models.ProjectOpen {
			return conflict("project is %s; only open projects can be closed", project.Status)
		}
		if _, err := q.SetProjectStatus(ctx, projectID, models.ProjectRejected, models.ProjectOpen); err != nil {
			return err
		}
		if _, err := q.TransitionProjectBids(ctx, projectID, models.BidPending, models.BidRejected); err != nil {
			return err
		}
		project.Status = models.ProjectRejected
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Printf("project %d closed without award by client %d", projectID, p.UserID)
	return project, nil
}

func (s *Service) GetProject(ctx context.Context, projectID int64) (*models.Project, error) {
	return loadProject(ctx, s.store.Queries, projectID)
}

func (s *Service) ListOpenProjects(ctx context.Context, limit, offset int) ([]models.Project, error) {
	limit, offset = pageBounds(limit, offset)
	projects, err := s.store.ListProjectsByStatus(ctx, models.ProjectOpen, limit, offset)
	if err != nil {
		return nil, internal("list open projects", err)
	}
	return projects, nil
}

func (s *Service) ListClientProjects(ctx context.Context, p Principal, limit, offset int) ([]models.Project, error) {
	if !p.IsClient() {
		return nil, forbidden("only clients own projects")
	}
	limit, offset = pageBounds(limit, offset)
	projects, err := s.store.ListClientProjects(ctx, p.UserID, limit, offset)
	if err != nil {
		return nil, internal("list client projects", err)
	}
	return projects, nil
}
