package models

import (
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
)

// VehicleStatus is partly derived state: occupancy is recomputed from the
// currently-active rentals after every pull rather than trusted from
// either side directly.
type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "AVAILABLE"
	VehicleOccupied    VehicleStatus = "OCCUPIED"
	VehicleMaintenance VehicleStatus = "MAINTENANCE"
)

// ParseVehicleStatus validates a wire-level vehicle status string.
func ParseVehicleStatus(s string) (VehicleStatus, error) {
	switch VehicleStatus(s) {
	case VehicleAvailable, VehicleOccupied, VehicleMaintenance:
		return VehicleStatus(s), nil
	}
	return "", fmt.Errorf("%w: vehicle status %q", common.ErrInvalidEnum, s)
}

// Vehicle is a listed rental vehicle. Business key: ID (generated). Scope
// for pulls is the owner email.
type Vehicle struct {
	ID         string
	OwnerEmail string
	Make       string
	Model      string
	Plate      string
	DailyRate  int64
	Status     VehicleStatus
	CreatedAt  int64
	SyncStatus
}

// PersonalVehicle is an owner's private vehicle offered for driver-only
// hires. Business key: ID (generated). Scope for pulls is the owner email.
type PersonalVehicle struct {
	ID         string
	OwnerEmail string
	Make       string
	Model      string
	Plate      string
	DailyRate  int64
	Available  bool
	CreatedAt  int64
	SyncStatus
}
