package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/repositories/accounts"
)

func newNameResolver(t *testing.T) (*NameResolver, accounts.Repository, *fakeCollection) {
	t.Helper()
	db := setupDB(t)
	repo := accounts.NewSQLiteRepository(db)
	col := newFakeCollection()
	return NewNameResolver(repo, col, testLogger()), repo, col
}

func TestResolveDisplayName_LocalHit(t *testing.T) {
	n, repo, col := newNameResolver(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.Account{
		Email:       "jane@example.com",
		Role:        models.RoleRenter,
		DisplayName: "Jane Local",
		CreatedAt:   1,
		SyncStatus:  models.SyncStatus{UpdatedAt: 1},
	}))

	name, err := n.ResolveDisplayName(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Local", name)
	assert.Empty(t, col.upserts(), "local hit needs no remote traffic")
}

func TestResolveDisplayName_RemoteHitIsCached(t *testing.T) {
	n, repo, col := newNameResolver(t)
	ctx := context.Background()

	col.seed("jane@example.com", map[string]any{
		"email":       "jane@example.com",
		"role":        "OWNER",
		"displayName": "Jane Remote",
		"createdAt":   int64(1),
		"updatedAt":   int64(1),
	})

	name, err := n.ResolveDisplayName(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Remote", name)

	// Cached locally: the next lookup is a local hit.
	got, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Remote", got.DisplayName)
}

func TestResolveDisplayName_DerivedFallback(t *testing.T) {
	n, repo, col := newNameResolver(t)
	ctx := context.Background()

	name, err := n.ResolveDisplayName(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	// The placeholder row must never win a merge against the real document.
	got, err := repo.GetByEmail(ctx, "jane.doe@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.UpdatedAt)
	assert.False(t, got.Dirty)

	// Shared remotely so other devices stop re-deriving.
	assert.Equal(t, "Jane Doe", col.doc("jane.doe@example.com")["displayName"])
}

func TestResolveDisplayName_RemoteFailureFallsBack(t *testing.T) {
	n, _, col := newNameResolver(t)
	ctx := context.Background()

	col.findErr = assert.AnError

	name, err := n.ResolveDisplayName(ctx, "bob_smith@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bob Smith", name)
}

func TestDeriveDisplayName(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"jane.doe@example.com", "Jane Doe"},
		{"bob_smith@example.com", "Bob Smith"},
		{"carol-anne+test@example.com", "Carol Anne Test"},
		{"ALLCAPS@example.com", "Allcaps"},
		{"x@example.com", "X"},
		{"@example.com", "@example.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveDisplayName(tt.email), tt.email)
	}
}
