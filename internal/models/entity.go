// Package models defines the marketplace entities the sync engine moves
// between the local store and the remote document collections, together
// with their enum types and per-record sync status.
package models

// EntityType identifies one synced entity family. The string value doubles
// as the remote collection name and the local table name.
type EntityType string

const (
	EntityAccount            EntityType = "accounts"
	EntityBalance            EntityType = "balances"
	EntityBalanceTransaction EntityType = "balance_transactions"
	EntityDriverProfile      EntityType = "driver_profiles"
	EntityRental             EntityType = "rentals"
	EntitySecondaryRental    EntityType = "driver_rentals"
	EntityPayment            EntityType = "payments"
	EntityIncomeRecord       EntityType = "income_records"
	EntityVehicle            EntityType = "vehicles"
	EntityPersonalVehicle    EntityType = "personal_vehicles"
)

// AllEntityTypes lists every entity family in a stable order. Orchestrated
// passes that do not name explicit types sync all of them.
var AllEntityTypes = []EntityType{
	EntityAccount,
	EntityBalance,
	EntityBalanceTransaction,
	EntityDriverProfile,
	EntityRental,
	EntitySecondaryRental,
	EntityPayment,
	EntityIncomeRecord,
	EntityVehicle,
	EntityPersonalVehicle,
}

// SyncStatus is carried by every synced record.
//
// Dirty=false means the local field values equal the last known remote
// values for the record. Dirty=true means the local record holds a change
// not yet reflected remotely. UpdatedAt is unix milliseconds and is the
// value compared by the conflict resolver.
type SyncStatus struct {
	Dirty     bool
	UpdatedAt int64
}
