package drivers

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for DriverProfile records.
type Repository interface {
	// GetByEmail returns the profile for the driver email, or common.ErrorNotFound.
	GetByEmail(ctx context.Context, email string) (*models.DriverProfile, error)

	// Save upserts the profile exactly as given.
	Save(ctx context.Context, p *models.DriverProfile) error

	// GetUnsynced returns dirty profiles for the driver email.
	GetUnsynced(ctx context.Context, email string) ([]*models.DriverProfile, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, email string, seenUpdatedAt int64) error

	// SetOnline flips the online flag locally and queues the change.
	SetOnline(ctx context.Context, email string, online bool, now int64) error
}
