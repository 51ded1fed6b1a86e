package market

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"marketplace/db"
	"marketplace/models"
)

// IssueDetail is an issue with its thread and attachments.
type IssueDetail struct {
	models.Issue
	Comments    []models.IssueComment    `json:"comments"`
	Attachments []models.IssueAttachment `json:"attachments"`
}

type CloseResult struct {
	Result
	Issue *models.Issue `json:"issue"`
	// Promoted is the submission version created from the latest attachment.
	Promoted *models.Submission `json:"promoted,omitempty"`
}

type IssueUploadResult struct {
	Result
	Attachment *models.IssueAttachment `json:"attachment,omitempty"`
	Submission *models.Submission      `json:"submission"`
	Pending    bool                    `json:"pending"`
}

// party describes how p relates to a project.
type party struct {
	owner  bool
	active *models.Bid // set when p holds the winning bid
}

func (pt party) ok() bool {
	return pt.owner || pt.active != nil
}

func partyOf(ctx context.Context, q *db.Queries, p Principal, project *models.Project) (party, error) {
	if p.IsClient() && project.ClientID == p.UserID {
		return party{owner: true}, nil
	}
	if !p.IsContractor() {
		return party{}, nil
	}
	bid, err := winningBid(ctx, q, project.ID)
	if err != nil {
		return party{}, err
	}
	if bid != nil && bid.ContractorID == p.UserID {
		return party{active: bid}, nil
	}
	return party{}, nil
}

// issueScope loads an issue with its project and checks that p is the
// owning client or the active contractor.
func issueScope(ctx context.Context, q *db.Queries, p Principal, issueID int64) (*models.Issue, *models.Project, party, error) {
	issue, err := loadIssue(ctx, q, issueID)
	if err != nil {
		return nil, nil, party{}, err
	}
	project, err := loadProject(ctx, q, issue.ProjectID)
	if err != nil {
		return nil, nil, party{}, err
	}
	pt, err := partyOf(ctx, q, p, project)
	if err != nil {
		return nil, nil, party{}, err
	}
	if !pt.ok() {
		return nil, nil, party{}, forbidden("not a party to issue %d", issueID)
	}
	return issue, project, pt, nil
}

// CreateIssue opens a revision request on the project.
func (s *Service) CreateIssue(ctx context.Context, p Principal, projectID int64, title, description string) (*models.Issue, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, invalid("issue title is required")
	}
	issue := &models.Issue{
		ProjectID:   projectID,
		Title:       title,
		Description: strings.TrimSpace(description),
		Status:      models.IssueOpen,
		CreatedBy:   p.UserID,
	}
	// hold the project lock so a completion cannot commit in between
	err := s.inTx(ctx, "create issue", func(q *db.Queries) error {
		project, err := lockProject(ctx, q, projectID)
		if err != nil {
			return err
		}
		if err := requireOwner(p, project); err != nil {
			return err
		}
		if project.Status == models.ProjectCompleted || project.Status == models.ProjectRejected {
			return conflict("project %d is %s", projectID, project.Status)
		}
		return q.CreateIssue(ctx, issue)
	})
	if err != nil {
		return nil, err
	}
	s.log.Printf("issue %d opened on project %d", issue.ID, projectID)
	return issue, nil
}

// StartIssue lets the active contractor pick up an open issue.
func (s *Service) StartIssue(ctx context.Context, p Principal, issueID int64) (*models.Issue, error) {
	issue, _, pt, err := issueScope(ctx, s.store.Queries, p, issueID)
	if err != nil {
		return nil, err
	}
	if pt.active == nil {
		return nil, forbidden("only the active contractor starts work on an issue")
	}
	ok, err := s.store.SetIssueStatus(ctx, issueID, models.IssueInProgress, models.IssueOpen)
	if err != nil {
		return nil, internal("start issue", err)
	}
	if !ok {
		return nil, conflict("issue %d is %s", issueID, issue.Status)
	}
	return loadIssue(ctx, s.store.Queries, issueID)
}

// AddComment appends to the issue thread. Blank content is ignored and
// yields a nil comment.
func (s *Service) AddComment(ctx context.Context, p Principal, issueID int64, content string) (*models.IssueComment, error) {
	if _, _, _, err := issueScope(ctx, s.store.Queries, p, issueID); err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}
	c := &models.IssueComment{IssueID: issueID, AuthorID: p.UserID, Content: content}
	if err := s.store.CreateIssueComment(ctx, c); err != nil {
		return nil, internal("add comment", err)
	}
	return c, nil
}

// CloseIssue closes the issue. The latest attachment then becomes a new
// deliverable version of the winning bid; a failure there only degrades
// the result.
func (s *Service) CloseIssue(ctx context.Context, p Principal, issueID int64) (*CloseResult, error) {
	issue, project, pt, err := issueScope(ctx, s.store.Queries, p, issueID)
	if err != nil {
		return nil, err
	}
	if !pt.owner {
		return nil, forbidden("only the project's client closes issues")
	}
	ok, err := s.store.SetIssueStatus(ctx, issueID, models.IssueClosed, models.IssueOpen, models.IssueInProgress)
	if err != nil {
		return nil, internal("close issue", err)
	}
	if !ok {
		return nil, conflict("issue %d is already closed", issueID)
	}
	if issue, err = loadIssue(ctx, s.store.Queries, issueID); err != nil {
		return nil, err
	}

	res := &CloseResult{Issue: issue}
	promoted, err := s.promoteAttachment(ctx, project, issueID)
	if err != nil {
		s.log.Printf("issue %d: promoting attachment failed: %v", issueID, err)
		res.degrade("issue closed, but its attachment could not be added to the deliverables")
	}
	res.Promoted = promoted
	return res, nil
}

func (s *Service) promoteAttachment(ctx context.Context, project *models.Project, issueID int64) (*models.Submission, error) {
	att, err := s.store.LatestIssueAttachment(ctx, issueID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	bid, err := winningBid(ctx, s.store.Queries, project.ID)
	if err != nil || bid == nil {
		return nil, err
	}
	// the attachment is usually recorded already by UploadFromIssue
	seen, err := s.store.HasSubmissionAt(ctx, bid.ID, att.StoragePath)
	if err != nil || seen {
		return nil, err
	}

	sub := &models.Submission{
		BidID:            bid.ID,
		ProjectID:        project.ID,
		Filename:         att.Filename,
		OriginalFilename: att.OriginalFilename,
		StoragePath:      att.StoragePath,
		SizeBytes:        att.SizeBytes,
		Source:           models.SourceIssue,
		UploadedBy:       att.UploadedBy,
	}
	if err := s.appendSubmission(ctx, sub, nil); err != nil {
		return nil, err
	}
	return sub, nil
}

// DeleteIssue removes the issue with its comments and attachments.
func (s *Service) DeleteIssue(ctx context.Context, p Principal, issueID int64) error {
	_, _, pt, err := issueScope(ctx, s.store.Queries, p, issueID)
	if err != nil {
		return err
	}
	if !pt.owner {
		return forbidden("only the project's client deletes issues")
	}
	err = s.store.DeleteIssue(ctx, issueID)
	if errors.Is(err, db.ErrNotFound) {
		return notFound("issue %d not found", issueID)
	}
	if err != nil {
		return internal("delete issue", err)
	}
	return nil
}

// UploadFromIssue attaches a file to the issue and records it as the next
// deliverable version of the contractor's winning bid.
func (s *Service) UploadFromIssue(ctx context.Context, p Principal, issueID int64, up Upload) (*IssueUploadResult, error) {
	ext, err := ValidateUpload(up.Filename, int64(len(up.Data)))
	if err != nil {
		return nil, err
	}
	issue, project, pt, err := issueScope(ctx, s.store.Queries, p, issueID)
	if err != nil {
		return nil, err
	}
	if pt.active == nil || pt.active.Status != models.BidAccepted {
		return nil, forbidden("only the contractor of the accepted bid uploads revisions")
	}
	if issue.Status == models.IssueClosed {
		return nil, conflict("issue %d is closed", issueID)
	}
	if project.Status != models.ProjectInProgress && project.Status != models.ProjectSubmitted {
		return nil, conflict("project %d is %s and takes no deliverables", project.ID, project.Status)
	}

	path, err := s.blobs.Write(ctx, ext, up.Data)
	if err != nil {
		return nil, internal("store uploaded file", err)
	}
	att := &models.IssueAttachment{
		IssueID:          issueID,
		Filename:         filepath.Base(path),
		OriginalFilename: filepath.Base(up.Filename),
		StoragePath:      path,
		SizeBytes:        int64(len(up.Data)),
		UploadedBy:       p.UserID,
	}
	sub := &models.Submission{
		BidID:            pt.active.ID,
		ProjectID:        project.ID,
		Filename:         att.Filename,
		OriginalFilename: att.OriginalFilename,
		StoragePath:      path,
		SizeBytes:        att.SizeBytes,
		Source:           models.SourceIssue,
		UploadedBy:       p.UserID,
	}

	pending, res, err := s.storeSubmission(ctx, sub, replayHint{issueID: issueID}, func(q *db.Queries) error {
		att.ID = 0
		return q.CreateIssueAttachment(ctx, att)
	})
	if err != nil {
		return nil, err
	}
	s.markSubmitted(ctx, project.ID, &res)
	out := &IssueUploadResult{Result: res, Submission: sub, Pending: pending}
	if !pending {
		out.Attachment = att
	}
	return out, nil
}

// CountOpen returns the number of issues still blocking completion.
func (s *Service) CountOpen(ctx context.Context, projectID int64) (int, error) {
	n, err := s.store.CountOpenIssues(ctx, projectID)
	if err != nil {
		return 0, internal("count open issues", err)
	}
	return n, nil
}

func (s *Service) ListIssues(ctx context.Context, p Principal, projectID int64) ([]models.Issue, error) {
	project, err := loadProject(ctx, s.store.Queries, projectID)
	if err != nil {
		return nil, err
	}
	pt, err := partyOf(ctx, s.store.Queries, p, project)
	if err != nil {
		return nil, err
	}
	if !pt.ok() {
		return nil, forbidden("not a party to project %d", projectID)
	}
	issues, err := s.store.ListIssues(ctx, projectID)
	if err != nil {
		return nil, internal("list issues", err)
	}
	return issues, nil
}

func (s *Service) GetIssue(ctx context.Context, p Principal, issueID int64) (*IssueDetail, error) {
	issue, _, _, err := issueScope(ctx, s.store.Queries, p, issueID)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.ListIssueComments(ctx, issueID)
	if err != nil {
		return nil, internal("list comments", err)
	}
	attachments, err := s.store.ListIssueAttachments(ctx, issueID)
	if err != nil {
		return nil, internal("list attachments", err)
	}
	return &IssueDetail{Issue: *issue, Comments: comments, Attachments: attachments}, nil
}
