package models

import (
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
)

// RentalStatus tracks the rental lifecycle.
type RentalStatus string

const (
	RentalPending   RentalStatus = "PENDING"
	RentalConfirmed RentalStatus = "CONFIRMED"
	RentalDelivered RentalStatus = "DELIVERED"
	RentalActive    RentalStatus = "ACTIVE"
	RentalCompleted RentalStatus = "COMPLETED"
	RentalCancelled RentalStatus = "CANCELLED"
)

// ParseRentalStatus validates a wire-level rental status string.
func ParseRentalStatus(s string) (RentalStatus, error) {
	switch RentalStatus(s) {
	case RentalPending, RentalConfirmed, RentalDelivered, RentalActive,
		RentalCompleted, RentalCancelled:
		return RentalStatus(s), nil
	}
	return "", fmt.Errorf("%w: rental status %q", common.ErrInvalidEnum, s)
}

// Rental is a vehicle rental. Business key: ID (generated). Scope for
// pulls is the renter email. Lifecycle fields (AssignedAt, DeliveredAt,
// ReturnedEarlyAt) are independently optional; zero means "not happened".
type Rental struct {
	ID              string
	VehicleID       string
	RenterEmail     string
	OwnerEmail      string
	DriverEmail     string // optional: only set when a driver is hired
	Status          RentalStatus
	StartAt         int64
	EndAt           int64
	AssignedAt      int64 // optional
	DeliveredAt     int64 // optional
	ReturnedEarlyAt int64 // optional
	PriceTotal      int64
	CreatedAt       int64
	SyncStatus
}

// Occupies reports whether the rental currently keeps its vehicle busy.
func (r *Rental) Occupies() bool {
	switch r.Status {
	case RentalConfirmed, RentalDelivered, RentalActive:
		return true
	}
	return false
}

// SecondaryRental is a driver-only hire, without a vehicle. Business key:
// ID (generated). Scope for pulls is the renter email.
type SecondaryRental struct {
	ID          string
	RenterEmail string
	DriverEmail string
	Status      RentalStatus
	StartAt     int64
	EndAt       int64
	AssignedAt  int64 // optional
	CompletedAt int64 // optional
	PriceTotal  int64
	CreatedAt   int64
	SyncStatus
}
