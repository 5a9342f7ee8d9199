package rentals

import (
	"context"

	"github.com/dmitrijs2005/movesync/internal/models"
)

// Repository describes local-store operations for Rental records.
type Repository interface {
	// GetByID returns the rental, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Rental, error)

	// Save upserts the rental exactly as given.
	Save(ctx context.Context, rr *models.Rental) error

	// GetForScope returns all rentals for a renter email.
	GetForScope(ctx context.Context, renterEmail string) ([]*models.Rental, error)

	// GetUnsynced returns dirty rentals for a renter email.
	GetUnsynced(ctx context.Context, renterEmail string) ([]*models.Rental, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error

	// ActiveCountForVehicle counts rentals that currently occupy the
	// vehicle. Used to recompute the derived vehicle status after a pull.
	ActiveCountForVehicle(ctx context.Context, vehicleID string) (int, error)
}

// SecondaryRepository describes local-store operations for driver-only hires.
type SecondaryRepository interface {
	// GetByID returns the hire, or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.SecondaryRental, error)

	// Save upserts the hire exactly as given.
	Save(ctx context.Context, sr *models.SecondaryRental) error

	// GetUnsynced returns dirty hires for a renter email.
	GetUnsynced(ctx context.Context, renterEmail string) ([]*models.SecondaryRental, error)

	// MarkSynced clears the dirty flag iff the record has not been updated
	// past seenUpdatedAt.
	MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error
}
