package handlers

import (
	"context"

	"marketplace/internal/auth"
	"marketplace/internal/market"
	"marketplace/models"
)

// MarketInterface is the part of *market.Service the HTTP layer calls.
type MarketInterface interface {
	CreateProject(ctx context.Context, p market.Principal, in market.NewProject) (*models.Project, error)
	UpdateProject(ctx context.Context, p market.Principal, projectID int64, in market.NewProject) (*models.Project, error)
	CloseProject(ctx context.Context, p market.Principal, projectID int64) (*models.Project, error)
	CompleteProject(ctx context.Context, p market.Principal, projectID int64) (*models.Project, error)
	GetProject(ctx context.Context, projectID int64) (*models.Project, error)
	ListOpenProjects(ctx context.Context, limit, offset int) ([]models.Project, error)
	ListClientProjects(ctx context.Context, p market.Principal, limit, offset int) ([]models.Project, error)

	SubmitBid(ctx context.Context, p market.Principal, projectID int64, price float64) (*models.Bid, error)
	AcceptBid(ctx context.Context, p market.Principal, bidID int64) (*models.Bid, error)
	RejectBid(ctx context.Context, p market.Principal, bidID int64) (*models.Bid, error)
	ListProjectBids(ctx context.Context, p market.Principal, projectID int64) ([]models.Bid, error)
	ListContractorBids(ctx context.Context, p market.Principal, limit, offset int) ([]models.Bid, error)

	UploadDeliverable(ctx context.Context, p market.Principal, projectID int64, up market.Upload) (*market.UploadResult, error)
	GetSubmission(ctx context.Context, p market.Principal, bidID int64) (*market.SubmissionView, error)
	ListSubmissionVersions(ctx context.Context, p market.Principal, bidID int64) ([]models.Submission, error)
	ReadDeliverable(ctx context.Context, p market.Principal, bidID int64) (*market.SubmissionView, []byte, error)

	CreateIssue(ctx context.Context, p market.Principal, projectID int64, title, description string) (*models.Issue, error)
	StartIssue(ctx context.Context, p market.Principal, issueID int64) (*models.Issue, error)
	AddComment(ctx context.Context, p market.Principal, issueID int64, content string) (*models.IssueComment, error)
	CloseIssue(ctx context.Context, p market.Principal, issueID int64) (*market.CloseResult, error)
	DeleteIssue(ctx context.Context, p market.Principal, issueID int64) error
	UploadFromIssue(ctx context.Context, p market.Principal, issueID int64, up market.Upload) (*market.IssueUploadResult, error)
	ListIssues(ctx context.Context, p market.Principal, projectID int64) ([]models.Issue, error)
	GetIssue(ctx context.Context, p market.Principal, issueID int64) (*market.IssueDetail, error)

	PostMessage(ctx context.Context, p market.Principal, projectID int64, content string) (*models.Message, error)
	ListMessages(ctx context.Context, p market.Principal, projectID int64) ([]models.Message, error)

	SubmitReview(ctx context.Context, p market.Principal, projectID int64, in market.ReviewInput) (*models.Review, error)
	Reputation(ctx context.Context, userID int64, role models.Role) (*models.ReputationSummary, error)
	ListReviews(ctx context.Context, userID int64, role models.Role) ([]models.Review, error)
}

// Authenticator is the identity service behind the auth endpoints and
// the bearer-token middleware.
type Authenticator interface {
	Register(ctx context.Context, username, password string, role models.Role) (*models.User, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Verify(token string) (*auth.Claims, error)
}
