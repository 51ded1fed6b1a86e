package market

import (
	"context"
	"strings"

	"marketplace/models"
)

// messageParty checks that p is the project's client or a contractor who
// bid on it.
func (s *Service) messageParty(ctx context.Context, p Principal, projectID int64) error {
	project, err := loadProject(ctx, s.store.Queries, projectID)
	if err != nil {
		return err
	}
	if p.IsClient() && project.ClientID == p.UserID {
		return nil
	}
	if p.IsContractor() {
		ok, err := s.store.HasBidOnProject(ctx, projectID, p.UserID)
		if err != nil {
			return internal("check bid", err)
		}
		if ok {
			return nil
		}
	}
	return forbidden("not a participant in project %d", projectID)
}

func (s *Service) PostMessage(ctx context.Context, p Principal, projectID int64, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("message is empty")
	}
	if err := s.messageParty(ctx, p, projectID); err != nil {
		return nil, err
	}
	m := &models.Message{ProjectID: projectID, SenderID: p.UserID, Content: content}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return nil, internal("post message", err)
	}
	return m, nil
}

// ListMessages returns the project thread in posting order.
func (s *Service) ListMessages(ctx context.Context, p Principal, projectID int64) ([]models.Message, error) {
	if err := s.messageParty(ctx, p, projectID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListMessages(ctx, projectID)
	if err != nil {
		return nil, internal("list messages", err)
	}
	return msgs, nil
}
