package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"marketplace/internal/market"
)

// multipart framing allowance on top of the file itself
const uploadOverhead = 1 << 20

// readUpload reads the "file" part of a multipart form. Oversized parts are
// passed on with one extra byte so the service reports the size error.
func readUpload(w http.ResponseWriter, r *http.Request) (market.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, market.MaxUploadBytes+uploadOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			badRequest(w, "file exceeds the 10 MiB limit")
			return market.Upload{}, false
		}
		badRequest(w, "Invalid multipart form")
		return market.Upload{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "Missing file field")
		return market.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, market.MaxUploadBytes+1))
	if err != nil {
		badRequest(w, "Failed to read uploaded file")
		return market.Upload{}, false
	}
	return market.Upload{Filename: header.Filename, Data: data}, true
}

// UploadDeliverableHandler handles POST /api/projects/{projectId}/deliverables.
// A degraded result is still 201; the warnings tell the caller what failed.
func (h *Handler) UploadDeliverableHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	up, ok := readUpload(w, r)
	if !ok {
		return
	}
	res, err := h.Market.UploadDeliverable(r.Context(), p, projectID, up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *Handler) GetSubmissionHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	view, err := h.Market.GetSubmission(r.Context(), p, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) GetSubmissionVersionsHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	versions, err := h.Market.ListSubmissionVersions(r.Context(), p, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *Handler) DownloadDeliverableHandler(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	bidID, ok := pathID(w, r, "bidId")
	if !ok {
		return
	}
	view, data, err := h.Market.ReadDeliverable(r.Context(), p, bidID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	name := view.OriginalFilename
	if name == "" {
		name = view.Filename
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(name)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
