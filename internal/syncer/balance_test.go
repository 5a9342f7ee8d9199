package syncer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/repositories/balances"
)

func TestBalancePull_RemoteAmountIsAuthoritative(t *testing.T) {
	db := setupDB(t)
	repo := balances.NewSQLiteRepository(db)
	col := newFakeCollection()
	a := NewBalanceAdapter(repo, col, testLogger())
	ctx := context.Background()

	// Local copy is dirty and has a newer timestamp; it still loses.
	require.NoError(t, repo.Save(ctx, &models.Balance{
		OwnerEmail: "jane@example.com",
		Amount:     999,
		CreatedAt:  10,
		SyncStatus: models.SyncStatus{Dirty: true, UpdatedAt: 500},
	}))

	col.seed("jane@example.com", map[string]any{
		"ownerEmail": "jane@example.com",
		"amount":     int64(250),
		"createdAt":  int64(10),
		"updatedAt":  int64(100),
	})

	require.NoError(t, a.PullForScope(ctx, "jane@example.com"))

	got, err := repo.GetByOwner(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Amount)
	assert.False(t, got.Dirty)
}

func TestBalancePush_QueuedAdjustmentIsPushed(t *testing.T) {
	db := setupDB(t)
	repo := balances.NewSQLiteRepository(db)
	col := newFakeCollection()
	a := NewBalanceAdapter(repo, col, testLogger())
	ctx := context.Background()

	_, _, err := repo.AdjustAmount(ctx, "jane@example.com", 300, 40)
	require.NoError(t, err)

	stats, err := a.PushUnsynced(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, PushStats{Pushed: 1}, stats)
	assert.Equal(t, int64(300), col.doc("jane@example.com")["amount"])

	got, err := repo.GetByOwner(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.False(t, got.Dirty)
}

func TestTxnPull_NeverTouchesExistingEntries(t *testing.T) {
	db := setupDB(t)
	repo := balances.NewSQLiteTxnRepository(db)
	col := newFakeCollection()
	a := NewTxnAdapter(repo, col, testLogger())
	ctx := context.Background()

	require.NoError(t, repo.Insert(ctx, &models.BalanceTransaction{
		ID:            "t1",
		OwnerEmail:    "jane@example.com",
		Direction:     models.DirectionCredit,
		Source:        models.SourceTopUp,
		Amount:        100,
		BalanceBefore: 0,
		BalanceAfter:  100,
		CreatedAt:     10,
		SyncStatus:    models.SyncStatus{Dirty: false, UpdatedAt: 10},
	}))

	// Remote carries a conflicting copy of t1 and a brand new t2.
	col.seed("t1", map[string]any{
		"id":            "t1",
		"ownerEmail":    "jane@example.com",
		"direction":     "DEBIT",
		"source":        "REFUND",
		"amount":        int64(999),
		"balanceBefore": int64(0),
		"balanceAfter":  int64(-999),
		"createdAt":     int64(10),
		"updatedAt":     int64(999),
	})
	col.seed("t2", map[string]any{
		"id":            "t2",
		"ownerEmail":    "jane@example.com",
		"direction":     "CREDIT",
		"source":        "RENTAL_PAYMENT",
		"amount":        int64(50),
		"balanceBefore": int64(100),
		"balanceAfter":  int64(150),
		"createdAt":     int64(20),
		"updatedAt":     int64(20),
	})

	require.NoError(t, a.PullForScope(ctx, "jane@example.com"))

	t1, err := repo.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, models.DirectionCredit, t1.Direction, "existing ledger entry is immutable")
	assert.Equal(t, int64(100), t1.Amount)

	t2, err := repo.GetByID(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, int64(50), t2.Amount)
	assert.False(t, t2.Dirty, "pulled entry arrives clean")
}
