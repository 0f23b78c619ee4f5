package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
	"github.com/ensura-lab/ensura/pkg/utils/safe"
)

type sessionRepository struct {
	db *sql.DB
}

func (r *sessionRepository) Create(ctx context.Context, session *model.Session) (*model.Session, error) {
	now := time.Now().UTC()
	created := *session
	if created.ID == "" {
		created.ID = model.NewSessionID()
	}
	created.CreatedAt = now
	created.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, updated_at, message_count) VALUES (?, ?, ?, ?, 0)`,
		created.ID.String(), created.UserID, created.CreatedAt, created.UpdatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to insert session", goerr.V(types.SessionIDKey, created.ID))
	}

	return &created, nil
}

func (r *sessionRepository) Get(ctx context.Context, id model.SessionID) (*model.Session, error) {
	var s model.Session
	var rawID string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, updated_at, message_count FROM sessions WHERE id = ?`,
		id.String(),
	).Scan(&rawID, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query session", goerr.V(types.SessionIDKey, id))
	}

	s.ID = model.SessionID(rawID)
	return &s, nil
}

// Append inserts the message, bumps the session counters and trims the
// retained log to maxMessages in one transaction.
func (r *sessionRepository) Append(ctx context.Context, id model.SessionID, msg model.Message, maxMessages int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM sessions WHERE id = ?`, id.String()).Scan(&exists)
	if err != nil {
		return goerr.Wrap(err, "failed to check session", goerr.V(types.SessionIDKey, id))
	}
	if exists == 0 {
		return goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, timestamp) VALUES (?, ?, ?, ?)`,
		id.String(), msg.Role.String(), msg.Content, msg.Timestamp,
	)
	if err != nil {
		return goerr.Wrap(err, "failed to insert message", goerr.V(types.SessionIDKey, id))
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = message_count + 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id.String(),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update session", goerr.V(types.SessionIDKey, id))
	}

	if maxMessages > 0 {
		_, err = tx.ExecContext(ctx,
			`DELETE FROM messages WHERE session_id = ? AND seq NOT IN (
				SELECT seq FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?
			)`,
			id.String(), id.String(), maxMessages,
		)
		if err != nil {
			return goerr.Wrap(err, "failed to evict old messages", goerr.V(types.SessionIDKey, id))
		}
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit append", goerr.V(types.SessionIDKey, id))
	}
	return nil
}

func (r *sessionRepository) Messages(ctx context.Context, id model.SessionID, limit int) ([]model.Message, error) {
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}

	query := `SELECT role, content, timestamp FROM messages WHERE session_id = ? ORDER BY seq`
	args := []any{id.String()}
	if limit > 0 {
		query = `SELECT role, content, timestamp FROM (
			SELECT seq, role, content, timestamp FROM messages WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query messages", goerr.V(types.SessionIDKey, id))
	}
	defer safe.Close(ctx, rows)

	var result []model.Message
	for rows.Next() {
		var m model.Message
		var role string
		if err := rows.Scan(&role, &m.Content, &m.Timestamp); err != nil {
			return nil, goerr.Wrap(err, "failed to scan message row")
		}
		m.Role = types.MessageRole(role)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate message rows")
	}

	return result, nil
}

// Delete removes the session and its messages in one transaction, so a
// failure never leaves orphaned message rows behind.
func (r *sessionRepository) Delete(ctx context.Context, id model.SessionID) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete session", goerr.V(types.SessionIDKey, id))
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return goerr.Wrap(err, "failed to count deleted rows")
	}
	if affected == 0 {
		return goerr.Wrap(types.ErrSessionNotFound, "session not found", goerr.V(types.SessionIDKey, id))
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id.String())
	if err != nil {
		return goerr.Wrap(err, "failed to delete session messages", goerr.V(types.SessionIDKey, id))
	}

	if err := tx.Commit(); err != nil {
		return goerr.Wrap(err, "failed to commit delete", goerr.V(types.SessionIDKey, id))
	}
	return nil
}

func (r *sessionRepository) List(ctx context.Context) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, created_at, updated_at, message_count FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list sessions")
	}
	defer safe.Close(ctx, rows)

	var result []*model.Session
	for rows.Next() {
		var s model.Session
		var rawID string
		if err := rows.Scan(&rawID, &s.UserID, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount); err != nil {
			return nil, goerr.Wrap(err, "failed to scan session row")
		}
		s.ID = model.SessionID(rawID)
		result = append(result, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate session rows")
	}

	return result, nil
}
