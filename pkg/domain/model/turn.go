package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/ensura-lab/ensura/pkg/domain/types"
)

// TurnID is a UUID v7 correlation identifier for a single pipeline turn
type TurnID string

// NewTurnID generates a new time-ordered TurnID
func NewTurnID() TurnID {
	return TurnID(uuid.Must(uuid.NewV7()).String())
}

// String returns the string representation of the turn ID
func (t TurnID) String() string {
	return string(t)
}

// ToolInvocation records one tool run within a turn. Either Result or
// FailureNote is set, never both.
type ToolInvocation struct {
	Tool        types.ToolName
	Result      map[string]any
	FailureNote string // validation failure surfaced as a clarification need
}

// Failed reports whether the invocation ended in a validation failure
func (ti ToolInvocation) Failed() bool {
	return ti.FailureNote != ""
}

// TurnTrace is the per-turn observability record consumed by the metrics
// collector. It is not persisted in the session.
type TurnTrace struct {
	TurnID           TurnID
	Intent           types.Intent
	Tools            []types.ToolName
	ClassifierCached bool
	RetrievalCached  bool
	ClassifyLatency  time.Duration
	RetrieveLatency  time.Duration
	ToolLatency      time.Duration
	GenerateLatency  time.Duration
	TotalLatency     time.Duration
}

// Answer is the generator's output for one turn
type Answer struct {
	Text      string
	Sources   []string // deduplicated document identifiers actually used
	Reasoning string   // structured summary (intent + tools), internal only
}

// RateLimitState is the limiter state reported alongside every chat result
type RateLimitState struct {
	Limit     int
	Remaining float64
	ResetAt   time.Time
}

// ChatResult is the outcome of one successful turn
type ChatResult struct {
	TurnID    TurnID
	SessionID SessionID
	Answer    string
	Sources   []string
	Reasoning string
	RateLimit RateLimitState
	Timestamp time.Time
}
