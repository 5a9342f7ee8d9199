package accounts

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for Account records.
// Implementations are backed by the local SQLite database.
type Repository interface {
	// GetByEmail returns the account for the given business key, or
	// common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.Account, error)

	// Save upserts the account by email, writing all fields including the
	// sync status exactly as given.
	Save(ctx context.Context, a *models.Account) error

	// GetUnsynced returns all accounts with a pending local change.
	GetUnsynced(ctx context.Context) ([]*models.Account, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt. Safe to call more than once.
	MarkSynced(ctx context.Context, email string, seenUpdatedAt int64) error

	// MarkDirty flags the record for the next push and bumps updated_at.
	MarkDirty(ctx context.Context, email string, now int64) error

	// UpdateDisplayName persists a resolved display name.
	UpdateDisplayName(ctx context.Context, email, name string, now int64, dirty bool) error

	// DeleteByEmail removes the account row. Used only for remote-driven
	// account removal.
	DeleteByEmail(ctx context.Context, email string) error
}
