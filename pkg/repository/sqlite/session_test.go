package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/ensura-lab/ensura/pkg/domain/model"
	"github.com/ensura-lab/ensura/pkg/domain/types"
)

func TestDeleteRemovesMessageRows(t *testing.T) {
	repo, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	gt.NoError(t, err).Required()
	t.Cleanup(func() {
		gt.NoError(t, repo.Close())
	})

	ctx := context.Background()

	created, err := repo.Session().Create(ctx, &model.Session{UserID: "u-001"})
	gt.NoError(t, err).Required()

	for _, content := range []string{"what does my policy cover?", "it covers fire and theft"} {
		msg := model.NewMessage(types.RoleUser, content)
		gt.NoError(t, repo.Session().Append(ctx, created.ID, msg, 10)).Required()
	}

	gt.NoError(t, repo.Session().Delete(ctx, created.ID)).Required()

	// No orphaned message rows may survive the session delete.
	var count int
	row := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, created.ID.String())
	gt.NoError(t, row.Scan(&count)).Required()
	gt.Value(t, count).Equal(0)
}
