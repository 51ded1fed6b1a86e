package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts every endpoint under /api. Everything except ping,
// register and login needs a bearer token.
func NewRouter(h *Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if timeout > 0 {
		r.Use(middleware.Timeout(timeout))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		r.Post("/auth/register", h.RegisterHandler)
		r.Post("/auth/login", h.LoginHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			// projects
			r.Get("/projects", h.GetProjectsHandler)
			r.Post("/projects", h.CreateProjectHandler)
			r.Get("/projects/my", h.GetMyProjectsHandler)
			r.Get("/projects/{projectId}", h.GetProjectHandler)
			r.Put("/projects/{projectId}", h.UpdateProjectHandler)
			r.Post("/projects/{projectId}/close", h.CloseProjectHandler)
			r.Post("/projects/{projectId}/complete", h.CompleteProjectHandler)

			// bids
			r.Post("/projects/{projectId}/bids", h.SubmitBidHandler)
			r.Get("/projects/{projectId}/bids", h.GetBidsForProjectHandler)
			r.Get("/bids/my", h.GetUserBidsHandler)
			r.Post("/bids/{bidId}/accept", h.AcceptBidHandler)
			r.Post("/bids/{bidId}/reject", h.RejectBidHandler)

			// deliverables
			r.Post("/projects/{projectId}/deliverables", h.UploadDeliverableHandler)
			r.Get("/bids/{bidId}/submission", h.GetSubmissionHandler)
			r.Get("/bids/{bidId}/submission/file", h.DownloadDeliverableHandler)
			r.Get("/bids/{bidId}/submissions", h.GetSubmissionVersionsHandler)

			// issues
			r.Post("/projects/{projectId}/issues", h.CreateIssueHandler)
			r.Get("/projects/{projectId}/issues", h.GetIssuesHandler)
			r.Get("/issues/{issueId}", h.GetIssueHandler)
			r.Delete("/issues/{issueId}", h.DeleteIssueHandler)
			r.Post("/issues/{issueId}/start", h.StartIssueHandler)
			r.Post("/issues/{issueId}/close", h.CloseIssueHandler)
			r.Post("/issues/{issueId}/comments", h.AddCommentHandler)
			r.Post("/issues/{issueId}/attachments", h.UploadIssueFileHandler)

			// messages and reviews
			r.Post("/projects/{projectId}/messages", h.PostMessageHandler)
			r.Get("/projects/{projectId}/messages", h.GetMessagesHandler)
			r.Post("/projects/{projectId}/reviews", h.SubmitReviewHandler)
			r.Get("/users/{userId}/reputation", h.GetReputationHandler)
			r.Get("/users/{userId}/reviews", h.GetReviewsHandler)
		})
	})
	return r
}
