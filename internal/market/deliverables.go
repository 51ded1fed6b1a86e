package market

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"marketplace/db"
	"marketplace/internal/blob"
	"marketplace/internal/journal"
	"marketplace/models"
)

// MaxUploadBytes is the largest accepted deliverable, inclusive.
const MaxUploadBytes = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".txt":  true,
	".jpg":  true,
	".png":  true,
}

// Upload is a file received from a contractor.
type Upload struct {
	Filename string
	Data     []byte
}

type UploadResult struct {
	Result
	Submission *models.Submission `json:"submission"`
	// Pending is set when the file is stored but only known to the journal.
	Pending bool `json:"pending"`
}

// SubmissionView is the current deliverable of a bid. Pending views come
// from the reconciliation journal and carry no store ID or version.
type SubmissionView struct {
	models.Submission
	Pending bool `json:"pending"`
}

// ValidateUpload checks the extension allow-list and the size limit and
// returns the normalized extension.
func ValidateUpload(filename string, size int64) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", invalid("file name is required")
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return "", invalid("unsupported file type %q; allowed: .pdf .docx .txt .jpg .png", ext)
	}
	if size < 0 || size > MaxUploadBytes {
		return "", invalid("file size %d exceeds the 10 MiB limit", size)
	}
	return ext, nil
}

// UploadDeliverable stores a new deliverable version for the contractor's
// bid on the project. The file is written before any store row, so a store
// failure still reports success, degraded, with the upload journaled.
func (s *Service) UploadDeliverable(ctx context.Context, p Principal, projectID int64, up Upload) (*UploadResult, error) {
	if !p.IsContractor() {
		return nil, forbidden("only contractors upload deliverables")
	}
	ext, err := ValidateUpload(up.Filename, int64(len(up.Data)))
	if err != nil {
		return nil, err
	}
	_, target, err := uploadTarget(ctx, s.store.Queries, p, projectID)
	if err != nil {
		return nil, err
	}

	path, err := s.blobs.Write(ctx, ext, up.Data)
	if err != nil {
		return nil, internal("store uploaded file", err)
	}

	sub := &models.Submission{
		BidID:            target.ID,
		ProjectID:        projectID,
		Filename:         filepath.Base(path),
		OriginalFilename: filepath.Base(up.Filename),
		StoragePath:      path,
		SizeBytes:        int64(len(up.Data)),
		Source:           models.SourceUpload,
		UploadedBy:       p.UserID,
	}
	var promoted bool
	guard := func(q *db.Queries) error {
		_, bid, err := uploadTarget(ctx, q, p, projectID)
		if err != nil {
			return err
		}
		sub.BidID = bid.ID
		promoted = false
		if bid.Status == models.BidRejected {
			promoted, err = reaccept(ctx, q, bid)
		}
		return err
	}
	hint := replayHint{promote: target.Status == models.BidRejected}
	pending, res, err := s.storeSubmission(ctx, sub, hint, guard)
	if err != nil {
		return nil, err
	}
	if pending && hint.promote {
		// the guarded transaction rolled back; re-accept on its own
		if err := s.inTx(ctx, "re-accept bid", guard); err != nil {
			s.log.Printf("bid %d: re-accept after journaled upload failed: %v", sub.BidID, err)
			res.degrade("file saved, but the bid will only be re-accepted once the upload is reconciled")
			return &UploadResult{Result: res, Submission: sub, Pending: pending}, nil
		}
	}
	if promoted {
		s.log.Printf("bid %d re-accepted after upload on project %d", sub.BidID, projectID)
	}

	s.markSubmitted(ctx, projectID, &res)
	return &UploadResult{Result: res, Submission: sub, Pending: pending}, nil
}

// reaccept moves a rejected bid that still holds the award back to accepted.
func reaccept(ctx context.Context, q *db.Queries, bid *models.Bid) (bool, error) {
	ok, err := q.SetBidStatus(ctx, bid.ID, models.BidAccepted, models.BidRejected)
	if errors.Is(err, db.ErrConflict) {
		return false, conflict("another bid on this project is accepted")
	}
	return ok, err
}

// markSubmitted moves the project from in_progress to submitted. It is a
// no-op in any other status, and a failure only degrades res.
func (s *Service) markSubmitted(ctx context.Context, projectID int64, res *Result) {
	if _, err := s.store.SetProjectStatus(ctx, projectID, models.ProjectSubmitted, models.ProjectInProgress); err != nil {
		s.log.Printf("project %d: mark submitted failed: %v", projectID, err)
		res.degrade("deliverable saved, but the project status could not be updated")
	}
}

// uploadTarget checks that the contractor may deliver on the project and
// returns the project and the bid the upload belongs to.
func uploadTarget(ctx context.Context, q *db.Queries, p Principal, projectID int64) (*models.Project, *models.Bid, error) {
	project, err := lockProject(ctx, q, projectID)
	if err != nil {
		return nil, nil, err
	}
	bid, err := q.GetBidByContractor(ctx, projectID, p.UserID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil, forbidden("you have no bid on project %d", projectID)
	}
	if err != nil {
		return nil, nil, internal("load bid", err)
	}
	if project.Status == models.ProjectCompleted {
		return nil, nil, conflict("project %d is completed", projectID)
	}

	switch bid.Status {
	case models.BidAccepted:
	case models.BidRejected:
		// a rejected bid may retry only while it is still the awarded one
		if !project.AwardedBidID.Valid || project.AwardedBidID.Int64 != bid.ID {
			return nil, nil, forbidden("bid %d was not awarded this project", bid.ID)
		}
	default:
		return nil, nil, forbidden("bid %d is %s; uploads need an accepted bid", bid.ID, bid.Status)
	}

	others, err := q.CountOtherBidsInStatus(ctx, projectID, bid.ID, models.BidAccepted)
	if err != nil {
		return nil, nil, internal("count accepted bids", err)
	}
	if others > 0 {
		return nil, nil, conflict("another bid on project %d is accepted", projectID)
	}
	if project.Status != models.ProjectInProgress && project.Status != models.ProjectSubmitted {
		return nil, nil, conflict("project %d is %s and takes no deliverables", projectID, project.Status)
	}
	return project, bid, nil
}

// replayHint is what a journaled upload needs besides the submission row.
type replayHint struct {
	issueID int64
	promote bool
}

// storeSubmission appends sub as a new version inside one transaction after
// guard passes. Guard errors are returned unchanged. Store failures are
// journaled with hint and reported as pending, degraded success.
func (s *Service) storeSubmission(ctx context.Context, sub *models.Submission, hint replayHint, guard func(q *db.Queries) error) (bool, Result, error) {
	var res Result
	err := s.appendSubmission(ctx, sub, guard)
	if err == nil {
		return false, res, nil
	}
	if KindOf(err) != KindInternal {
		return false, res, err
	}

	s.log.Printf("bid %d: recording submission %s failed, journaling: %v", sub.BidID, sub.Filename, err)
	res.degrade("file saved, but recording it failed; it will be visible once reconciled")
	if err := s.journalSubmission(sub, hint); err != nil {
		s.log.Printf("bid %d: journal append failed: %v", sub.BidID, err)
		res.degrade("file saved, but its record could not be kept; contact an administrator")
	}
	return true, res, nil
}

// appendSubmission retries when a concurrent upload took the same version.
func (s *Service) appendSubmission(ctx context.Context, sub *models.Submission, guard func(q *db.Queries) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewConstant(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.store.InTx(ctx, func(q *db.Queries) error {
			if guard != nil {
				if err := guard(q); err != nil {
					return err
				}
			}
			return q.AppendSubmission(ctx, sub)
		})
		if errors.Is(err, db.ErrConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
	return classify("record submission", err)
}

func (s *Service) journalSubmission(sub *models.Submission, hint replayHint) error {
	if s.journal == nil {
		return errors.New("no reconciliation journal configured")
	}
	_, err := s.journal.Append(journal.Entry{
		ProjectID:        sub.ProjectID,
		BidID:            sub.BidID,
		UploaderID:       sub.UploadedBy,
		Filename:         sub.Filename,
		OriginalFilename: sub.OriginalFilename,
		StoragePath:      sub.StoragePath,
		SizeBytes:        sub.SizeBytes,
		Source:           string(sub.Source),
		IssueID:          hint.issueID,
		Promote:          hint.promote,
	})
	return err
}

// viewableBid loads a bid that p may look at: the project's client or the
// bid's contractor.
func (s *Service) viewableBid(ctx context.Context, p Principal, bidID int64) (*models.Bid, error) {
	bid, err := loadBid(ctx, s.store.Queries, bidID)
	if err != nil {
		return nil, err
	}
	project, err := loadProject(ctx, s.store.Queries, bid.ProjectID)
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsClient() && project.ClientID == p.UserID:
	case p.IsContractor() && bid.ContractorID == p.UserID:
	default:
		return nil, forbidden("not a party to bid %d", bidID)
	}
	return bid, nil
}

// GetSubmission returns the bid's current deliverable. When the store has
// no record, an upload still waiting in the journal is returned instead.
func (s *Service) GetSubmission(ctx context.Context, p Principal, bidID int64) (*SubmissionView, error) {
	bid, err := s.viewableBid(ctx, p, bidID)
	if err != nil {
		return nil, err
	}
	sub, storeErr := s.store.LatestSubmission(ctx, bid.ID)
	if storeErr == nil {
		return &SubmissionView{Submission: *sub}, nil
	}
	if !errors.Is(storeErr, db.ErrNotFound) {
		s.log.Printf("bid %d: submission lookup failed, trying journal: %v", bid.ID, storeErr)
	}

	if s.journal != nil {
		entry, ok, err := s.journal.LatestForBid(bid.ID)
		if err != nil {
			s.log.Printf("bid %d: journal lookup failed: %v", bid.ID, err)
		} else if ok {
			return &SubmissionView{Submission: submissionFromEntry(entry), Pending: true}, nil
		}
	}
	if !errors.Is(storeErr, db.ErrNotFound) {
		return nil, internal("load submission", storeErr)
	}
	return nil, notFound("no deliverable uploaded for bid %d", bidID)
}

// ListSubmissionVersions returns every recorded version, oldest first.
func (s *Service) ListSubmissionVersions(ctx context.Context, p Principal, bidID int64) ([]models.Submission, error) {
	bid, err := s.viewableBid(ctx, p, bidID)
	if err != nil {
		return nil, err
	}
	subs, err := s.store.ListSubmissions(ctx, bid.ID)
	if err != nil {
		return nil, internal("list submissions", err)
	}
	return subs, nil
}

// ReadDeliverable returns the current deliverable with its bytes.
func (s *Service) ReadDeliverable(ctx context.Context, p Principal, bidID int64) (*SubmissionView, []byte, error) {
	view, err := s.GetSubmission(ctx, p, bidID)
	if err != nil {
		return nil, nil, err
	}
	data, err := s.blobs.Read(view.StoragePath)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil, notFound("file for bid %d is missing from storage", bidID)
	}
	if err != nil {
		return nil, nil, internal("read deliverable", err)
	}
	return view, data, nil
}

func submissionFromEntry(e journal.Entry) models.Submission {
	source := models.SubmissionSource(e.Source)
	if source == "" {
		source = models.SourceUpload
	}
	return models.Submission{
		BidID:            e.BidID,
		ProjectID:        e.ProjectID,
		Filename:         e.Filename,
		OriginalFilename: e.OriginalFilename,
		StoragePath:      e.StoragePath,
		SizeBytes:        e.SizeBytes,
		Source:           source,
		UploadedBy:       e.UploaderID,
		UploadedAt:       e.Timestamp,
	}
}
