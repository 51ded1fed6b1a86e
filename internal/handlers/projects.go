package handlers

import (
	"net/http"

	"marketplace/internal/market"
)

type projectRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"required,max=5000"`
	Budget      float64 `json:"budget" validate:"gt=0"`
	Deadline    string  `json:"deadline" validate:"required,datetime=2006-01-02"`
}

func (req projectRequest) toNewProject() market.NewProject {
	return market.NewProject{
		Title:       req.Title,
		Description: req.Description,
		Budget:      req.Budget,
		Deadline:    req.Deadline,
	}
}

// CreateProjectHandler handles POST /api/projects.
func (h *Handler) CreateProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req projectRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	project, err := h.Market.CreateProject(r.Context(), p, req.toNewProject())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *Handler) UpdateProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req projectRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	project, err := h.Market.UpdateProject(r.Context(), p, projectID, req.toNewProject())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) CloseProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	project, err := h.Market.CloseProject(r.Context(), p, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// CompleteProjectHandler answers 409 with openCount while issues are open.
func (h *Handler) CompleteProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	project, err := h.Market.CompleteProject(r.Context(), p, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *Handler) GetProjectHandler(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	project, err := h.Market.GetProject(r.Context(), projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

// GetProjectsHandler lists open projects.
func (h *Handler) GetProjectsHandler(w http.ResponseWriter, r *http.Request) {
	params := parsePaginationParams(r)
	projects, err := h.Market.ListOpenProjects(r.Context(), params.Limit, params.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (h *Handler) GetMyProjectsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	params := parsePaginationParams(r)
	projects, err := h.Market.ListClientProjects(r.Context(), p, params.Limit, params.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}
