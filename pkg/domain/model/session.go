package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ensura-lab/ensura/pkg/domain/types"
)

// SessionID is a UUID-based identifier for a conversation session
type SessionID string

// NewSessionID generates a new UUID v4 SessionID
func NewSessionID() SessionID {
	return SessionID(uuid.New().String())
}

// String returns the string representation of the session ID
func (s SessionID) String() string {
	return string(s)
}

// Session is a conversation between one user and the assistant. The stored
// message list is bounded: appends beyond the configured maximum evict the
// oldest messages first.
type Session struct {
	ID           SessionID
	UserID       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int // total messages ever appended, including evicted ones
}

// Message is a single conversation turn entry. Immutable once appended.
type Message struct {
	Role      types.MessageRole
	Content   string
	Timestamp time.Time
}

// NewMessage creates a message with the current timestamp
func NewMessage(role types.MessageRole, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
