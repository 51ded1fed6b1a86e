package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"marketplace/internal/auth"
	"marketplace/internal/market"
	"marketplace/models"
)

type ctxKey int

const principalKey ctxKey = iota

// WithPrincipal stores the authenticated user in ctx.
func WithPrincipal(ctx context.Context, p market.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func principalFrom(ctx context.Context) (market.Principal, bool) {
	p, ok := ctx.Value(principalKey).(market.Principal)
	return p, ok
}

// AuthMiddleware accepts "Authorization: Bearer <token>" and puts the
// verified principal in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeErrorKind(w, http.StatusUnauthorized, market.KindForbidden, "missing bearer token")
			return
		}
		claims, err := h.Auth.Verify(strings.TrimSpace(token))
		if err != nil {
			writeErrorKind(w, http.StatusUnauthorized, market.KindForbidden, "invalid or expired token")
			return
		}
		p := market.Principal{UserID: claims.UserID, Role: claims.Role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// principal returns the caller or writes 401 when the middleware did not run.
func principal(w http.ResponseWriter, r *http.Request) (market.Principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		writeErrorKind(w, http.StatusUnauthorized, market.KindForbidden, "authentication required")
	}
	return p, ok
}

type registerRequest struct {
	Username string      `json:"username" validate:"required,max=64"`
	Password string      `json:"password" validate:"required,min=6"`
	Role     models.Role `json:"role" validate:"required,oneof=client contractor"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	u, err := h.Auth.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	session, err := h.Auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (h *Handler) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		badRequest(w, err.Error())
	case errors.Is(err, auth.ErrUsernameTaken):
		writeErrorKind(w, http.StatusConflict, market.KindConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorKind(w, http.StatusUnauthorized, market.KindForbidden, err.Error())
	default:
		h.log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
		writeErrorKind(w, http.StatusInternalServerError, market.KindInternal, "internal error")
	}
}
