package syncer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/repositories/balances"
	"github.com/dmitrijs2005/movesync/internal/repositories/payments"
)

func TestWallet_ApplyIncome_CreditsOnce(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	incomeRepo := payments.NewSQLiteIncomeRepository(db)
	rec := &models.IncomeRecord{
		ID:             "i1",
		RentalID:       "r1",
		RecipientEmail: "owner@example.com",
		Amount:         800,
		Source:         models.SourceRentalPayment,
		CreatedAt:      10,
		SyncStatus:     models.SyncStatus{Dirty: false, UpdatedAt: 10},
	}
	require.NoError(t, incomeRepo.Save(ctx, rec))

	w := NewWallet(db, testLogger())

	applied, err := w.ApplyIncome(ctx, rec)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = w.ApplyIncome(ctx, rec)
	require.NoError(t, err)
	assert.False(t, applied, "second application must lose the claim")

	balRepo := balances.NewSQLiteRepository(db)
	b, err := balRepo.GetByOwner(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(800), b.Amount)

	// Exactly one ledger entry, queued for push.
	entries, err := balances.NewSQLiteTxnRepository(db).GetUnsynced(ctx, "owner@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.DirectionCredit, entries[0].Direction)
	assert.Equal(t, int64(0), entries[0].BalanceBefore)
	assert.Equal(t, int64(800), entries[0].BalanceAfter)

	// The record itself is flagged applied and requeued.
	got, err := incomeRepo.GetByID(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, got.BalanceSynced)
	assert.True(t, got.Dirty)
}

func TestWallet_ApplyIncome_ConcurrentCallersNoDoubleApply(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	incomeRepo := payments.NewSQLiteIncomeRepository(db)
	rec := &models.IncomeRecord{
		ID:             "i1",
		RentalID:       "r1",
		RecipientEmail: "owner@example.com",
		Amount:         500,
		Source:         models.SourceDriverPayout,
		CreatedAt:      10,
		SyncStatus:     models.SyncStatus{UpdatedAt: 10},
	}
	require.NoError(t, incomeRepo.Save(ctx, rec))

	w := NewWallet(db, testLogger())

	const callers = 8
	var wg sync.WaitGroup
	results := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			applied, err := w.ApplyIncome(ctx, rec)
			assert.NoError(t, err)
			results[i] = applied
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, r := range results {
		if r {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one caller may win the claim")

	b, err := balances.NewSQLiteRepository(db).GetByOwner(ctx, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(500), b.Amount)
}

func TestWallet_ApplyPayment_DebitsPayer(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	payRepo := payments.NewSQLiteRepository(db)
	p := &models.Payment{
		ID:          "p1",
		RentalID:    "r1",
		PayerEmail:  "jane@example.com",
		OwnerAmount: 800,
		PlatformFee: 100,
		Method:      models.MethodWallet,
		Status:      models.PaymentCaptured,
		CreatedAt:   10,
		SyncStatus:  models.SyncStatus{UpdatedAt: 10},
	}
	require.NoError(t, payRepo.Save(ctx, p))

	// Give the payer an opening balance via the remote-authority path.
	balRepo := balances.NewSQLiteRepository(db)
	require.NoError(t, balRepo.ReplaceFromRemote(ctx, "jane@example.com", 1000, 1, 1))

	w := NewWallet(db, testLogger())
	applied, err := w.ApplyPayment(ctx, p)
	require.NoError(t, err)
	assert.True(t, applied)

	b, err := balRepo.GetByOwner(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Amount, "debit is the full total: owner + driver + fee")

	entries, err := balances.NewSQLiteTxnRepository(db).GetUnsynced(ctx, "jane@example.com")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.DirectionDebit, entries[0].Direction)
	assert.Equal(t, int64(900), entries[0].Amount)
}

func TestWallet_ApplyPayment_IgnoresNonWalletAndUncaptured(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	w := NewWallet(db, testLogger())

	applied, err := w.ApplyPayment(ctx, &models.Payment{
		ID: "p1", Method: models.MethodCash, Status: models.PaymentCaptured,
	})
	require.NoError(t, err)
	assert.False(t, applied)

	applied, err = w.ApplyPayment(ctx, &models.Payment{
		ID: "p2", Method: models.MethodWallet, Status: models.PaymentPending,
	})
	require.NoError(t, err)
	assert.False(t, applied)
}
