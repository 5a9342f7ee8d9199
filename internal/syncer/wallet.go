package syncer

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/movesync/internal/dbx"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/repositories/balances"
	"github.com/dmitrijs2005/movesync/internal/repositories/payments"
)

// Wallet is the single entry point for balance mutations. Every adjustment
// runs in one local transaction: claim the source record's applied flag,
// move the amount, append a ledger entry. Losing the claim means the record
// was already applied and the whole operation is a no-op.
type Wallet struct {
	db  *sql.DB
	log logging.Logger
}

// NewWallet returns a wallet bound to the local store.
func NewWallet(db *sql.DB, log logging.Logger) *Wallet {
	return &Wallet{db: db, log: log.With("component", "wallet")}
}

// ApplyPayment debits the payer's balance for a captured wallet payment.
// It returns true when this call performed the debit, false when the payment
// had already been applied.
func (w *Wallet) ApplyPayment(ctx context.Context, p *models.Payment) (bool, error) {
	if p.Method != models.MethodWallet || p.Status != models.PaymentCaptured {
		return false, nil
	}

	var applied bool
	err := dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		payRepo := payments.NewSQLiteRepository(tx)
		won, err := payRepo.ClaimBalanceApply(ctx, p.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		now := nowMillis()
		balRepo := balances.NewSQLiteRepository(tx)
		before, after, err := balRepo.AdjustAmount(ctx, p.PayerEmail, -p.Total(), now)
		if err != nil {
			return err
		}

		txnRepo := balances.NewSQLiteTxnRepository(tx)
		entry := &models.BalanceTransaction{
			ID:            uuid.NewString(),
			OwnerEmail:    p.PayerEmail,
			Direction:     models.DirectionDebit,
			Source:        models.SourceRentalPayment,
			Amount:        p.Total(),
			BalanceBefore: before,
			BalanceAfter:  after,
			CreatedAt:     now,
			SyncStatus:    models.SyncStatus{Dirty: true, UpdatedAt: now},
		}
		if err := txnRepo.Insert(ctx, entry); err != nil {
			return err
		}

		// Re-save the payment dirty so the applied flag propagates on the
		// next push. The sticky upsert keeps balance_synced set.
		cp := *p
		cp.BalanceSynced = true
		cp.Dirty = true
		cp.UpdatedAt = now
		if err := payRepo.Save(ctx, &cp); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply payment %s: %w", p.ID, err)
	}
	if !applied {
		w.log.Debug(ctx, "payment already applied", "id", p.ID)
		return false, nil
	}
	w.log.Info(ctx, "payment applied to balance", "id", p.ID, "payer", p.PayerEmail, "amount", p.Total())
	return true, nil
}

// ApplyIncome credits the recipient's balance for an income record, with the
// same claim semantics as ApplyPayment.
func (w *Wallet) ApplyIncome(ctx context.Context, rec *models.IncomeRecord) (bool, error) {
	var applied bool
	err := dbx.WithTx(ctx, w.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		incRepo := payments.NewSQLiteIncomeRepository(tx)
		won, err := incRepo.ClaimBalanceApply(ctx, rec.ID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}

		now := nowMillis()
		balRepo := balances.NewSQLiteRepository(tx)
		before, after, err := balRepo.AdjustAmount(ctx, rec.RecipientEmail, rec.Amount, now)
		if err != nil {
			return err
		}

		txnRepo := balances.NewSQLiteTxnRepository(tx)
		entry := &models.BalanceTransaction{
			ID:            uuid.NewString(),
			OwnerEmail:    rec.RecipientEmail,
			Direction:     models.DirectionCredit,
			Source:        rec.Source,
			Amount:        rec.Amount,
			BalanceBefore: before,
			BalanceAfter:  after,
			CreatedAt:     now,
			SyncStatus:    models.SyncStatus{Dirty: true, UpdatedAt: now},
		}
		if err := txnRepo.Insert(ctx, entry); err != nil {
			return err
		}

		cp := *rec
		cp.BalanceSynced = true
		cp.Dirty = true
		cp.UpdatedAt = now
		if err := incRepo.Save(ctx, &cp); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("apply income %s: %w", rec.ID, err)
	}
	if !applied {
		w.log.Debug(ctx, "income already applied", "id", rec.ID)
		return false, nil
	}
	w.log.Info(ctx, "income applied to balance", "id", rec.ID, "recipient", rec.RecipientEmail, "amount", rec.Amount)
	return true, nil
}
