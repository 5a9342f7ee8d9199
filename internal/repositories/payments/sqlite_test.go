package payments

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/models"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE payments (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  payer_email TEXT NOT NULL,
  owner_amount INTEGER NOT NULL DEFAULT 0,
  driver_amount INTEGER NOT NULL DEFAULT 0,
  platform_fee INTEGER NOT NULL DEFAULT 0,
  method TEXT NOT NULL,
  status TEXT NOT NULL,
  balance_synced INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
CREATE TABLE income_records (
  id TEXT PRIMARY KEY,
  rental_id TEXT NOT NULL,
  recipient_email TEXT NOT NULL,
  amount INTEGER NOT NULL,
  source TEXT NOT NULL,
  balance_synced INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  dirty INTEGER NOT NULL DEFAULT 1,
  updated_at INTEGER NOT NULL
);
`)
	require.NoError(t, err)

	return db
}

func testPayment() *models.Payment {
	return &models.Payment{
		ID:          "p1",
		RentalID:    "r1",
		PayerEmail:  "jane@example.com",
		OwnerAmount: 800,
		PlatformFee: 100,
		Method:      models.MethodWallet,
		Status:      models.PaymentCaptured,
		CreatedAt:   10,
		SyncStatus:  models.SyncStatus{Dirty: true, UpdatedAt: 10},
	}
}

func TestPaymentSave_BalanceSyncedIsSticky(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	p := testPayment()
	p.BalanceSynced = true
	require.NoError(t, r.Save(ctx, p))

	// A later save carrying the flag unset must not clear it.
	stale := testPayment()
	stale.BalanceSynced = false
	stale.UpdatedAt = 20
	require.NoError(t, r.Save(ctx, stale))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.BalanceSynced)
	assert.Equal(t, int64(20), got.UpdatedAt)
}

func TestClaimBalanceApply_FirstCallerWins(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, testPayment()))

	won, err := r.ClaimBalanceApply(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = r.ClaimBalanceApply(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, won, "second claim must lose")

	// Missing record: nothing to claim.
	won, err = r.ClaimBalanceApply(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, won)
}

func TestPaymentGetUnsynced_ScopedByRental(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO payments(id, rental_id, payer_email, method, status, created_at, dirty, updated_at) VALUES
	  ('p1', 'r1', 'jane@example.com', 'WALLET', 'CAPTURED', 1, 1, 1),
	  ('p2', 'r1', 'jane@example.com', 'CARD', 'PENDING', 2, 0, 2),
	  ('p3', 'r2', 'jane@example.com', 'CASH', 'CAPTURED', 3, 1, 3)
	`)
	require.NoError(t, err)

	got, err := r.GetUnsynced(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestIncomeClaimAndStickyFlag(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteIncomeRepository(db)
	ctx := context.Background()

	rec := &models.IncomeRecord{
		ID:             "i1",
		RentalID:       "r1",
		RecipientEmail: "owner@example.com",
		Amount:         800,
		Source:         models.SourceRentalPayment,
		CreatedAt:      10,
		SyncStatus:     models.SyncStatus{Dirty: true, UpdatedAt: 10},
	}
	require.NoError(t, r.Save(ctx, rec))

	won, err := r.ClaimBalanceApply(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = r.ClaimBalanceApply(ctx, "i1")
	require.NoError(t, err)
	assert.False(t, won)

	// A merge save without the flag must not reset it.
	rec.UpdatedAt = 20
	require.NoError(t, r.Save(ctx, rec))

	got, err := r.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, got.BalanceSynced)
}

func TestPaymentMarkSynced_GuardedBySnapshot(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Save(ctx, testPayment()))

	// Record edited past the pushed snapshot stays dirty.
	_, err := db.Exec(`UPDATE payments SET updated_at = 50 WHERE id = 'p1'`)
	require.NoError(t, err)
	require.NoError(t, r.MarkSynced(ctx, "p1", 10))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, got.Dirty)

	require.NoError(t, r.MarkSynced(ctx, "p1", 50))
	got, err = r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, got.Dirty)
}
