package handlers

import (
	"net/http"
)

type bidRequest struct {
	Price float64 `json:"price" validate:"gt=0"`
}

// SubmitBidHandler handles POST /api/projects/{projectId}/bids. Bidding
// again replaces the price and resets the bid to pending.
func (h *Handler) SubmitBidHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req bidRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	bid, err := h.Market.SubmitBid(r.Context(), p, projectID, req.Price)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) AcceptBidHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	bid, err := h.Market.AcceptBid(r.Context(), p, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) RejectBidHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	bid, err := h.Market.RejectBid(r.Context(), p, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bid)
}

func (h *Handler) GetBidsForProjectHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	bids, err := h.Market.ListProjectBids(r.Context(), p, projectID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}

func (h *Handler) GetUserBidsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	params := parsePaginationParams(r)
	bids, err := h.Market.ListContractorBids(r.Context(), p, params.Limit, params.Offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bids)
}
