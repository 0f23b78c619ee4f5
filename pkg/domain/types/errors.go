package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors shared across the pipeline and its callers
var (
	// ErrAdmissionRejected means the rate limiter denied the turn. It is a
	// normal outcome, surfaced to the client as a retry-after signal.
	ErrAdmissionRejected = goerr.New("admission rejected by rate limiter")

	// ErrValidation means a request or tool input was out of range or
	// unresolvable. Tool-level failures are recovered locally: the turn
	// continues with a clarification note.
	ErrValidation = goerr.New("validation failed")

	// ErrSessionNotFound means the requested session does not exist
	ErrSessionNotFound = goerr.New("session not found")

	// ErrCapabilityUnavailable means an external capability (language model
	// or vector search) failed. The turn is discarded without mutating memory.
	ErrCapabilityUnavailable = goerr.New("external capability unavailable")

	// ErrKnowledgeNotReady means the knowledge base has not been ingested yet
	ErrKnowledgeNotReady = goerr.New("knowledge base not ready")
)

// Context keys for goerr values
const (
	RetryAfterKey    = "retry_after"
	RateRemainingKey = "rate_remaining"
	RateLimitKey     = "rate_limit"
	RateResetKey     = "rate_reset"
	SessionIDKey     = "session_id"
	TurnIDKey        = "turn_id"
	ToolNameKey      = "tool_name"
	FieldNameKey     = "field_name"
)
