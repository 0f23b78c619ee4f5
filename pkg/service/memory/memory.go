package memory

import (
	"context"
	"errors"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/interfaces"
	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

// Service is the bounded conversation memory. It owns session message logs:
// all mutation goes through Append/Clear, and the retained message count per
// session never exceeds the configured maximum (oldest dropped first).
type Service struct {
	repo        interfaces.Repository
	maxMessages int
}

// New creates a conversation memory retaining at most maxMessages messages
// per session.
func New(repo interfaces.Repository, maxMessages int) *Service {
	if maxMessages < 1 {
		maxMessages = 1
	}
	return &Service{
		repo:        repo,
		maxMessages: maxMessages,
	}
}

// NewSession creates a session with a fresh unique identifier
func (s *Service) NewSession(ctx context.Context, userID string) (*model.Session, error) {
	created, err := s.repo.Session().Create(ctx, &model.Session{UserID: userID})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create session")
	}
	return created, nil
}

// Append records a message, evicting the oldest beyond the retention bound
func (s *Service) Append(ctx context.Context, id model.SessionID, msg model.Message) error {
	if err := s.repo.Session().Append(ctx, id, msg, s.maxMessages); err != nil {
		return goerr.Wrap(err, "failed to append message", goerr.V(types.SessionIDKey, id))
	}
	return nil
}

// History returns the most recent max messages in chronological order.
// max <= 0 returns everything retained.
func (s *Service) History(ctx context.Context, id model.SessionID, max int) ([]model.Message, error) {
	msgs, err := s.repo.Session().Messages(ctx, id, max)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// RecentContext renders the last n messages as "Role: text" lines for
// forwarding to retrieval, classification and generation. Returns an empty
// string for unknown sessions and sessions without history.
func (s *Service) RecentContext(ctx context.Context, id model.SessionID, n int) string {
	msgs, err := s.repo.Session().Messages(ctx, id, n)
	if err != nil || len(msgs) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n")
		}
		switch msg.Role {
		case types.RoleAssistant:
			sb.WriteString("Assistant: ")
		default:
			sb.WriteString("User: ")
		}
		sb.WriteString(msg.Content)
	}
	return sb.String()
}

// Get returns the session record
func (s *Service) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	return s.repo.Session().Get(ctx, id)
}

// Exists reports whether the session exists
func (s *Service) Exists(ctx context.Context, id model.SessionID) (bool, error) {
	_, err := s.repo.Session().Get(ctx, id)
	if errors.Is(err, types.ErrSessionNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Clear deletes the session and its history immediately
func (s *Service) Clear(ctx context.Context, id model.SessionID) error {
	return s.repo.Session().Delete(ctx, id)
}

// ListSessions returns all sessions in creation order
func (s *Service) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return s.repo.Session().List(ctx)
}
