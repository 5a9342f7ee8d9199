package payments

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for Payment records.
type Repository interface {
	// GetByID returns the payment, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Payment, error)

	// Save upserts the payment exactly as given. BalanceSynced is written
	// as carried by the model; only ClaimBalanceApply may flip it from
	// false to true on an existing row.
	Save(ctx context.Context, p *models.Payment) error

	// GetUnsynced returns dirty payments for a rental id.
	GetUnsynced(ctx context.Context, rentalID string) ([]*models.Payment, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error

	// ClaimBalanceApply atomically flips balance_synced from 0 to 1.
	// It reports whether this caller won the claim; false means the
	// payment was already applied to a balance.
	ClaimBalanceApply(ctx context.Context, id string) (bool, error)
}

// IncomeRepository describes local-store operations for IncomeRecord records.
type IncomeRepository interface {
	// GetByID returns the income record, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.IncomeRecord, error)

	// Save upserts the income record exactly as given.
	Save(ctx context.Context, rec *models.IncomeRecord) error

	// GetUnsynced returns dirty income records for a recipient email.
	GetUnsynced(ctx context.Context, recipientEmail string) ([]*models.IncomeRecord, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error

	// ClaimBalanceApply atomically flips balance_synced from 0 to 1,
	// reporting whether this caller won the claim.
	ClaimBalanceApply(ctx context.Context, id string) (bool, error)
}
