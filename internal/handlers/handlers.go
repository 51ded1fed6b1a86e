package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"marketplace/internal/market"
)

const maxJSONBody = 1048576

// Handler wires the marketplace service and the identity service to HTTP.
type Handler struct {
	Market   MarketInterface
	Auth     Authenticator
	validate *validator.Validate
	log      *log.Logger
}

func NewHandler(m MarketInterface, a Authenticator, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{Market: m, Auth: a, validate: validator.New(), log: logger}
}

// PingHandler answers "ok" for liveness checks.
func (h *Handler) PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type errorResponse struct {
	Error     string      `json:"error"`
	Kind      market.Kind `json:"kind"`
	OpenCount int         `json:"openCount,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeErrorKind(w http.ResponseWriter, status int, kind market.Kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErrorKind(w, http.StatusBadRequest, market.KindValidation, msg)
}

var kindStatus = map[market.Kind]int{
	market.KindForbidden:  http.StatusForbidden,
	market.KindNotFound:   http.StatusNotFound,
	market.KindConflict:   http.StatusConflict,
	market.KindValidation: http.StatusBadRequest,
	market.KindInternal:   http.StatusInternalServerError,
}

// writeError maps a service error to its HTTP status. Internal causes are
// logged and never sent to the caller.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := market.KindOf(err)
	status := kindStatus[kind]
	resp := errorResponse{Kind: kind, OpenCount: market.OpenCountOf(err)}

	var me *market.Error
	switch {
	case kind == market.KindInternal:
		h.log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		resp.Error = "internal error"
	case errors.As(err, &me):
		resp.Error = me.Message
	default:
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeJSON reads a bounded JSON body into dst and validates its tags.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "Failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		badRequest(w, "Invalid JSON format")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		badRequest(w, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		if fe.Param() != "" {
			return fe.Field() + " fails " + fe.Tag() + "=" + fe.Param()
		}
		return fe.Field() + " fails " + fe.Tag()
	}
	return err.Error()
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "Invalid "+name)
		return 0, false
	}
	return id, true
}

type PaginationParams struct {
	Limit  int
	Offset int
}

// parsePaginationParams reads limit and offset with defaults and bounds.
func parsePaginationParams(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 100 {
		params.Limit = l
	}
	if o, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && o >= 0 {
		params.Offset = o
	}
	return params
}
