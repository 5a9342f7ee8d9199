package syncer

import "github.com/dmitrijs2005/movesync/internal/models"

// Policy is the merge rule applied to a field group during a pull.
type Policy int

const (
	// PolicyLastWriter takes the remote values iff the remote updatedAt is
	// strictly newer; otherwise the local record wins and is re-marked
	// dirty so the next push re-asserts it.
	PolicyLastWriter Policy = iota

	// PolicyLocalOnly never accepts a remote value. Used for fields the
	// remote store never legitimately carries (account credential).
	PolicyLocalOnly

	// PolicyRemoteAuthority takes the remote value unconditionally,
	// regardless of timestamps (balance amount).
	PolicyRemoteAuthority

	// PolicyDerived trusts neither side: the value is recomputed locally
	// after the pull and pushed back when the remote copy is stale
	// (vehicle occupancy).
	PolicyDerived

	// PolicyAppendOnly never modifies an existing local record; pulls only
	// insert missing records (balance transaction ledger).
	PolicyAppendOnly
)

// recordPolicies is the per-entity-type table of the dominant record-level
// policy. Field-group exceptions (credential, balance amount, vehicle
// occupancy) are applied inside the per-entity merge functions below.
var recordPolicies = map[models.EntityType]Policy{
	models.EntityAccount:            PolicyLastWriter,
	models.EntityBalance:            PolicyRemoteAuthority,
	models.EntityBalanceTransaction: PolicyAppendOnly,
	models.EntityDriverProfile:      PolicyLastWriter,
	models.EntityRental:             PolicyLastWriter,
	models.EntitySecondaryRental:    PolicyLastWriter,
	models.EntityPayment:            PolicyLastWriter,
	models.EntityIncomeRecord:       PolicyLastWriter,
	models.EntityVehicle:            PolicyDerived,
	models.EntityPersonalVehicle:    PolicyLastWriter,
}

// PolicyFor returns the record-level merge policy for an entity type.
func PolicyFor(et models.EntityType) Policy {
	return recordPolicies[et]
}

// Resolver applies the merge policy table to pulled records.
type Resolver struct{}

// NewResolver returns the conflict resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// remoteWins is the default last-writer rule shared by the merge functions.
func remoteWins(local, remote models.SyncStatus) bool {
	return remote.UpdatedAt > local.UpdatedAt
}

// keepLocalStatus computes the status of a record the local side won: it
// stays (or becomes) dirty when it actually diverges from the remote copy,
// so the next push re-asserts the local values.
func keepLocalStatus(local, remote models.SyncStatus) models.SyncStatus {
	return models.SyncStatus{
		Dirty:     local.Dirty || local.UpdatedAt > remote.UpdatedAt,
		UpdatedAt: local.UpdatedAt,
	}
}

// MergeAccount merges a pulled account into the local one. The credential
// hash is protected-local: it survives any remote verdict.
func (r *Resolver) MergeAccount(local, remote *models.Account) *models.Account {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.CredentialHash = local.CredentialHash
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}

// MergeDriverProfile merges a pulled driver profile into the local one.
func (r *Resolver) MergeDriverProfile(local, remote *models.DriverProfile) *models.DriverProfile {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}

// MergeRental merges a pulled rental into the local one.
func (r *Resolver) MergeRental(local, remote *models.Rental) *models.Rental {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}

// MergeSecondaryRental merges a pulled driver-only hire into the local one.
func (r *Resolver) MergeSecondaryRental(local, remote *models.SecondaryRental) *models.SecondaryRental {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}

// MergePayment merges a pulled payment into the local one. BalanceSynced is
// sticky: once either side has applied the payment to a balance it must
// never flip back, whatever the timestamps say.
func (r *Resolver) MergePayment(local, remote *models.Payment) *models.Payment {
	var out models.Payment
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out = *remote
		out.Dirty = false
	} else {
		out = *local
		out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	}
	out.BalanceSynced = local.BalanceSynced || remote.BalanceSynced
	return &out
}

// MergeIncomeRecord merges a pulled income record into the local one, with
// the same sticky BalanceSynced rule as payments.
func (r *Resolver) MergeIncomeRecord(local, remote *models.IncomeRecord) *models.IncomeRecord {
	var out models.IncomeRecord
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out = *remote
		out.Dirty = false
	} else {
		out = *local
		out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	}
	out.BalanceSynced = local.BalanceSynced || remote.BalanceSynced
	return &out
}

// MergeVehicle merges a pulled vehicle into the local one. The status field
// is derived; the adapter recomputes it from active rentals after the merge
// and repairs the remote copy when they disagree.
func (r *Resolver) MergeVehicle(local, remote *models.Vehicle) *models.Vehicle {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}

// MergePersonalVehicle merges a pulled personal vehicle into the local one.
func (r *Resolver) MergePersonalVehicle(local, remote *models.PersonalVehicle) *models.PersonalVehicle {
	if remoteWins(local.SyncStatus, remote.SyncStatus) {
		out := *remote
		out.Dirty = false
		return &out
	}
	out := *local
	out.SyncStatus = keepLocalStatus(local.SyncStatus, remote.SyncStatus)
	return &out
}
