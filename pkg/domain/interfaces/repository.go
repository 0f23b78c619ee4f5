package interfaces

import (
	"context"

	"github.com/ensura-lab/ensura/pkg/domain/model"
)

// Repository defines the interface for session persistence
type Repository interface {
	Session() SessionRepository
	Close() error
}

// SessionRepository stores sessions and their bounded message logs.
// Implementations must make Append atomic: the message is appended and the
// FIFO eviction applied in a single step, so a reader never observes a
// partially appended log or one exceeding maxMessages.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) (*model.Session, error)
	Get(ctx context.Context, id model.SessionID) (*model.Session, error)

	// Append adds a message and evicts the oldest messages beyond maxMessages.
	// maxMessages <= 0 means unbounded.
	Append(ctx context.Context, id model.SessionID, msg model.Message, maxMessages int) error

	// Messages returns the most recent limit messages in chronological order.
	// limit <= 0 returns all retained messages.
	Messages(ctx context.Context, id model.SessionID, limit int) ([]model.Message, error)

	Delete(ctx context.Context, id model.SessionID) error
	List(ctx context.Context) ([]*model.Session, error)
}
