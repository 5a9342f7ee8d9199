package vehicles

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for Vehicle records.
type Repository interface {
	// GetByID returns the vehicle, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Vehicle, error)

	// Save upserts the vehicle exactly as given.
	Save(ctx context.Context, v *models.Vehicle) error

	// GetByOwner returns all vehicles for an owner email.
	GetByOwner(ctx context.Context, ownerEmail string) ([]*models.Vehicle, error)

	// GetUnsynced returns dirty vehicles for an owner email.
	GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.Vehicle, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error

	// UpdateStatus overwrites the derived status field.
	UpdateStatus(ctx context.Context, id string, status models.VehicleStatus, now int64, dirty bool) error
}

// PersonalRepository describes local-store operations for PersonalVehicle records.
type PersonalRepository interface {
	// GetByID returns the personal vehicle, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.PersonalVehicle, error)

	// Save upserts the personal vehicle exactly as given.
	Save(ctx context.Context, v *models.PersonalVehicle) error

	// GetUnsynced returns dirty personal vehicles for an owner email.
	GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.PersonalVehicle, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error
}
