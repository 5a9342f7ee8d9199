package balances

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for Balance records.
//
// Note there is deliberately no method that recomputes a balance from the
// transaction ledger: the remote copy is the source of truth for the amount
// and ReplaceFromRemote is the only pull-side write path.
type Repository interface {
	// GetByOwner returns the balance for the owner email, or common.ErrorNotFound.
	GetByOwner(ctx context.Context, ownerEmail string) (*models.Balance, error)

	// Save upserts the balance exactly as given.
	Save(ctx context.Context, b *models.Balance) error

	// ReplaceFromRemote overwrites the local amount with the remote value
	// unconditionally and clears the dirty flag.
	ReplaceFromRemote(ctx context.Context, ownerEmail string, amount, createdAt, updatedAt int64) error

	// GetUnsynced returns balances with a pending local change for the owner.
	GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.Balance, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, ownerEmail string, seenUpdatedAt int64) error

	// AdjustAmount adds delta (which may be negative) to the owner's
	// balance, creating a zero balance first if none exists. It returns the
	// amounts before and after and leaves the record dirty.
	AdjustAmount(ctx context.Context, ownerEmail string, delta, now int64) (before, after int64, err error)
}

// TxnRepository describes local-store operations for the append-only
// BalanceTransaction ledger.
type TxnRepository interface {
	// GetByID returns the ledger entry, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.BalanceTransaction, error)

	// Insert appends a new ledger entry. Entries are never updated.
	Insert(ctx context.Context, t *models.BalanceTransaction) error

	// GetUnsynced returns dirty ledger entries for the owner.
	GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.BalanceTransaction, error)

	// MarkSynced clears the dirty flag for a pushed ledger entry.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error
}
