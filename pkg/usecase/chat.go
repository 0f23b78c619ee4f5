package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/utils/logging"
)

// MaxQueryLength bounds a single chat message
const MaxQueryLength = 4000

// CreateSession starts a new conversation for the given user identifier.
// The user identifier is informational only; admission control keys on the
// transport-level client key instead.
func (uc *UseCases) CreateSession(ctx context.Context, userID string) (*model.Session, error) {
	session, err := uc.memory.NewSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	logging.From(ctx).Info("session created", types.SessionIDKey, session.ID.String(), "user_id", userID)
	return session, nil
}

// SendMessage runs one chat turn. Admission control is checked before any
// other work, so a rejected request costs nothing downstream and does not
// touch the session. clientKey identifies the caller for rate limiting.
func (uc *UseCases) SendMessage(ctx context.Context, clientKey string, sessionID model.SessionID, query string) (*model.ChatResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, goerr.Wrap(types.ErrValidation, "message must not be empty", goerr.V(types.FieldNameKey, "message"))
	}
	if len(query) > MaxQueryLength {
		return nil, goerr.Wrap(types.ErrValidation, "message too long", goerr.V(types.FieldNameKey, "message"))
	}

	decision := uc.limiter.Admit(clientKey)
	if !decision.Allowed {
		uc.metrics.RecordError("rate_limited")
		return nil, goerr.Wrap(types.ErrAdmissionRejected, "rate limit exceeded",
			goerr.V(types.RetryAfterKey, decision.RetryAfter),
			goerr.V(types.RateLimitKey, decision.Limit),
			goerr.V(types.RateRemainingKey, decision.Remaining),
			goerr.V(types.RateResetKey, decision.ResetAt),
		)
	}

	if _, err := uc.memory.Get(ctx, sessionID); err != nil {
		return nil, err
	}

	answer, trace, err := uc.pipeline.Run(ctx, sessionID, query)
	if err != nil {
		return nil, err
	}

	return &model.ChatResult{
		TurnID:    trace.TurnID,
		SessionID: sessionID,
		Answer:    answer.Text,
		Sources:   answer.Sources,
		Reasoning: answer.Reasoning,
		RateLimit: model.RateLimitState{
			Limit:     decision.Limit,
			Remaining: decision.Remaining,
			ResetAt:   decision.ResetAt,
		},
		Timestamp: time.Now().UTC(),
	}, nil
}

// GetHistory returns the session record with its retained messages. limit
// selects the most recent messages; limit <= 0 returns everything retained.
func (uc *UseCases) GetHistory(ctx context.Context, sessionID model.SessionID, limit int) (*model.Session, []model.Message, error) {
	session, err := uc.memory.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := uc.memory.History(ctx, sessionID, limit)
	if err != nil {
		return nil, nil, err
	}
	return session, msgs, nil
}

// DeleteSession removes the session and its history immediately
func (uc *UseCases) DeleteSession(ctx context.Context, sessionID model.SessionID) error {
	if err := uc.memory.Clear(ctx, sessionID); err != nil {
		return err
	}
	logging.From(ctx).Info("session deleted", types.SessionIDKey, sessionID.String())
	return nil
}

// ListSessions returns all active sessions in creation order
func (uc *UseCases) ListSessions(ctx context.Context) ([]*model.Session, error) {
	return uc.memory.ListSessions(ctx)
}
