package handlers

import (
	"net/http"

	"marketplace/internal/market"
	"marketplace/models"
)

type reviewRequest struct {
	Rating1 int    `json:"rating1" validate:"min=1,max=5"`
	Rating2 int    `json:"rating2" validate:"min=1,max=5"`
	Rating3 int    `json:"rating3" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

func (h *Handler) SubmitReviewHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req reviewRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	review, err := h.Market.SubmitReview(r.Context(), p, projectID, market.ReviewInput{
		R1:      req.Rating1,
		R2:      req.Rating2,
		R3:      req.Rating3,
		Comment: req.Comment,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// roleParam reads ?role=, defaulting to contractor.
func roleParam(r *http.Request) models.Role {
	if role := r.URL.Query().Get("role"); role != "" {
		return models.Role(role)
	}
	return models.RoleContractor
}

func (h *Handler) GetReputationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	summary, err := h.Market.Reputation(r.Context(), userID, roleParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetReviewsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	reviews, err := h.Market.ListReviews(r.Context(), userID, roleParam(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}
