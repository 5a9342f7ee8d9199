package syncer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/remote"
	"github.com/dmitrijs2005/movesync/internal/repositories/accounts"
)

func TestAccountWatcher_AppliesAndRemoves(t *testing.T) {
	db := setupDB(t)
	repo := accounts.NewSQLiteRepository(db)
	col := newFakeCollection()
	adapter := NewAccountAdapter(repo, col, NewResolver(), testLogger())
	w := NewAccountWatcher(adapter, col, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Account{
		Email:      "gone@example.com",
		Role:       models.RoleRenter,
		CreatedAt:  1,
		SyncStatus: models.SyncStatus{UpdatedAt: 1},
	}))

	doc, err := json.Marshal(map[string]any{
		"email":       "new@example.com",
		"role":        "DRIVER",
		"displayName": "New Driver",
		"createdAt":   int64(5),
		"updatedAt":   int64(5),
	})
	require.NoError(t, err)

	feed := make(chan remote.Change, 3)
	feed <- remote.Change{ID: "new@example.com", Doc: doc}
	feed <- remote.Change{ID: "gone@example.com", Deleted: true}
	// A malformed change is skipped without killing the feed.
	feed <- remote.Change{ID: "bad@example.com", Doc: json.RawMessage(`{"role":"NOPE"}`)}
	close(feed)
	col.feed = feed

	require.NoError(t, w.consume(ctx))

	got, err := repo.GetByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, got.Role)
	assert.False(t, got.Dirty)

	_, err = repo.GetByEmail(ctx, "gone@example.com")
	assert.Error(t, err, "remote deletion must remove the local row")

	_, err = repo.GetByEmail(ctx, "bad@example.com")
	assert.Error(t, err)
}
