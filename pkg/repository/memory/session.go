package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

type sessionEntry struct {
	session  *model.Session
	messages []model.Message
}

type sessionRepository struct {
	mu      sync.RWMutex
	entries map[model.SessionID]*sessionEntry
}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		entries: make(map[model.SessionID]*sessionEntry),
	}
}

func copySession(s *model.Session) *model.Session {
	copied := *s
	return &copied
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	created := copySession(session)
	if created.ID == "" {
		created.ID = model.NewSessionID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	r.entries[created.ID] = &sessionEntry{session: created}
	return copySession(created), nil
}

func (r *sessionRepository) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	return copySession(entry.session), nil
}

func (r *sessionRepository) Append(ctx context.Context, id model.SessionID, msg model.Message, maxMessages int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	entry.messages = append(entry.messages, msg)
	if maxMessages > 0 && len(entry.messages) > maxMessages {
		// FIFO eviction: drop the oldest, keep the most recent context
		entry.messages = entry.messages[len(entry.messages)-maxMessages:]
	}

	entry.session.MessageCount++
	entry.session.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *sessionRepository) Messages(ctx context.Context, id model.SessionID, limit int) ([]model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	msgs := entry.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}

	result := make([]model.Message, len(msgs))
	copy(result, msgs)
	return result, nil
}

func (r *sessionRepository) Delete(ctx context.Context, id model.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[id]; !exists {
		return goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	delete(r.entries, id)
	return nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*model.Session, 0, len(r.entries))
	for _, entry := range r.entries {
		result = append(result, copySession(entry.session))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
