package handlers

import (
	"net/http"
)

type messageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

func (h *Handler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req messageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.Market.PostMessage(r.Context(), p, projectID, req.Content)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	msgs, err := h.Market.ListMessages(r.Context(), p, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
