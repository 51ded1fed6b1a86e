package handlers

import (
	"net/http"
)

type issueRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type commentRequest struct {
	Content string `json:"content" validate:"max=5000"`
}

func (h *Handler) CreateIssueHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req issueRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	issue, err := h.Market.CreateIssue(r.Context(), p, projectID, req.Title, req.Description)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

func (h *Handler) GetIssuesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	issues, err := h.Market.ListIssues(r.Context(), p, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (h *Handler) GetIssueHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	issue, err := h.Market.GetIssue(r.Context(), p, issueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (h *Handler) StartIssueHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	issue, err := h.Market.StartIssue(r.Context(), p, issueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// AddCommentHandler answers 204 when the comment was blank and ignored.
func (h *Handler) AddCommentHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	var req commentRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	comment, err := h.Market.AddComment(r.Context(), p, issueID, req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if comment == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *Handler) CloseIssueHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	res, err := h.Market.CloseIssue(r.Context(), p, issueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteIssueHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	if err := h.Market.DeleteIssue(r.Context(), p, issueID); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UploadIssueFileHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	issueID, ok := pathID(w, r, "issueId")
	if !ok {
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.Market.UploadFromIssue(r.Context(), p, issueID, up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
