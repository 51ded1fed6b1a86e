package models

import (
	"database/sql"
	"time"
)

type Role string

const (
	RoleClient     Role = "client"
	RoleContractor Role = "contractor"
)

func (r Role) Valid() bool {
	return r == RoleClient || r == RoleContractor
}

type ProjectStatus string

const (
	ProjectOpen       ProjectStatus = "open"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectSubmitted  ProjectStatus = "submitted"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectRejected   ProjectStatus = "rejected"
)

type BidStatus string

const (
	BidPending   BidStatus = "pending"
	BidAccepted  BidStatus = "accepted"
	BidRejected  BidStatus = "rejected"
	BidCompleted BidStatus = "completed"
)

type IssueStatus string

const (
	IssueOpen       IssueStatus = "open"
	IssueInProgress IssueStatus = "in_progress"
	IssueClosed     IssueStatus = "closed"
)

type SubmissionSource string

const (
	SourceUpload SubmissionSource = "upload"
	SourceIssue  SubmissionSource = "issue"
)

// User account; role never changes after registration.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username" validate:"required,max=64"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role" validate:"required,oneof=client contractor"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// Project posted by a client.
type Project struct {
	ID           int64         `db:"id" json:"id"`
	Title        string        `db:"title" json:"title" validate:"required,max=200"`
	Description  string        `db:"description" json:"description" validate:"required,max=5000"`
	Budget       float64       `db:"budget" json:"budget" validate:"gt=0"`
	Deadline     time.Time     `db:"deadline" json:"deadline"`
	Status       ProjectStatus `db:"status" json:"status"`
	ClientID     int64         `db:"client_id" json:"clientId"`
	AwardedBidID sql.NullInt64 `db:"awarded_bid_id" json:"-"`
	CreatedAt    time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updatedAt"`
}

// Bid is a contractor's priced offer, one row per (project, contractor).
type Bid struct {
	ID           int64     `db:"id" json:"id"`
	ProjectID    int64     `db:"project_id" json:"projectId"`
	ContractorID int64     `db:"contractor_id" json:"contractorId"`
	Price        float64   `db:"price" json:"price" validate:"gt=0"`
	Status       BidStatus `db:"status" json:"status"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Submission is one version of a bid's deliverable.
type Submission struct {
	ID               int64            `db:"id" json:"id"`
	BidID            int64            `db:"bid_id" json:"bidId"`
	ProjectID        int64            `db:"project_id" json:"projectId"`
	Version          int              `db:"version" json:"version"`
	Filename         string           `db:"filename" json:"filename"`
	OriginalFilename string           `db:"original_filename" json:"originalFilename"`
	StoragePath      string           `db:"storage_path" json:"-"`
	SizeBytes        int64            `db:"size_bytes" json:"sizeBytes"`
	Source           SubmissionSource `db:"source" json:"source"`
	UploadedBy       int64            `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt       time.Time        `db:"uploaded_at" json:"uploadedAt"`
}

type Issue struct {
	ID          int64        `db:"id" json:"id"`
	ProjectID   int64        `db:"project_id" json:"projectId"`
	Title       string       `db:"title" json:"title" validate:"required,max=200"`
	Description string       `db:"description" json:"description"`
	Status      IssueStatus  `db:"status" json:"status"`
	CreatedBy   int64        `db:"created_by" json:"createdBy"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
	ClosedAt    sql.NullTime `db:"closed_at" json:"-"`
}

type IssueComment struct {
	ID        int64     `db:"id" json:"id"`
	IssueID   int64     `db:"issue_id" json:"issueId"`
	AuthorID  int64     `db:"author_id" json:"authorId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type IssueAttachment struct {
	ID               int64     `db:"id" json:"id"`
	IssueID          int64     `db:"issue_id" json:"issueId"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"originalFilename"`
	StoragePath      string    `db:"storage_path" json:"-"`
	SizeBytes        int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedBy       int64     `db:"uploaded_by" json:"uploadedBy"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// Message in a project thread, append-only.
type Message struct {
	ID        int64     `db:"id" json:"id"`
	ProjectID int64     `db:"project_id" json:"projectId"`
	SenderID  int64     `db:"sender_id" json:"senderId"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Review left by one party about the other after completion.
// TargetRole is the role of the reviewee.
type Review struct {
	ID         int64     `db:"id" json:"id"`
	ProjectID  int64     `db:"project_id" json:"projectId"`
	ReviewerID int64     `db:"reviewer_id" json:"reviewerId"`
	RevieweeID int64     `db:"reviewee_id" json:"revieweeId"`
	TargetRole Role      `db:"target_role" json:"targetRole"`
	Rating1    int       `db:"rating_1" json:"rating1" validate:"min=1,max=5"`
	Rating2    int       `db:"rating_2" json:"rating2" validate:"min=1,max=5"`
	Rating3    int       `db:"rating_3" json:"rating3" validate:"min=1,max=5"`
	Comment    string    `db:"comment" json:"comment"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// ReputationSummary aggregates reviews about one user in one role.
type ReputationSummary struct {
	UserID  int64   `db:"user_id" json:"userId"`
	Role    Role    `db:"target_role" json:"role"`
	Count   int     `db:"review_count" json:"count"`
	Rating1 float64 `db:"avg_rating_1" json:"rating1"`
	Rating2 float64 `db:"avg_rating_2" json:"rating2"`
	Rating3 float64 `db:"avg_rating_3" json:"rating3"`
	Overall float64 `db:"-" json:"overall"`
}
