package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/movesync/internal/models"
)

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyLastWriter, PolicyFor(models.EntityAccount))
	assert.Equal(t, PolicyRemoteAuthority, PolicyFor(models.EntityBalance))
	assert.Equal(t, PolicyAppendOnly, PolicyFor(models.EntityBalanceTransaction))
	assert.Equal(t, PolicyDerived, PolicyFor(models.EntityVehicle))
}

func TestMergeAccount_RemoteNewerWins(t *testing.T) {
	r := NewResolver()

	local := &models.Account{
		Email:          "jane@example.com",
		Role:           models.RoleRenter,
		DisplayName:    "Old Name",
		CredentialHash: "local-secret",
		SyncStatus:     models.SyncStatus{Dirty: true, UpdatedAt: 100},
	}
	remote := &models.Account{
		Email:       "jane@example.com",
		Role:        models.RoleOwner,
		DisplayName: "New Name",
		SyncStatus:  models.SyncStatus{UpdatedAt: 200},
	}

	out := r.MergeAccount(local, remote)
	assert.Equal(t, "New Name", out.DisplayName)
	assert.Equal(t, models.RoleOwner, out.Role)
	assert.False(t, out.Dirty)
	assert.Equal(t, "local-secret", out.CredentialHash, "credential never comes from remote")
}

func TestMergeAccount_TieKeepsLocalWithoutDirtyChurn(t *testing.T) {
	r := NewResolver()

	local := &models.Account{
		Email:       "jane@example.com",
		Role:        models.RoleRenter,
		DisplayName: "Local",
		SyncStatus:  models.SyncStatus{Dirty: false, UpdatedAt: 200},
	}
	remote := &models.Account{
		Email:       "jane@example.com",
		Role:        models.RoleRenter,
		DisplayName: "Remote",
		SyncStatus:  models.SyncStatus{UpdatedAt: 200},
	}

	out := r.MergeAccount(local, remote)
	assert.Equal(t, "Local", out.DisplayName)
	assert.False(t, out.Dirty, "equal timestamps must not requeue a clean record")
}

func TestMergeAccount_LocalNewerStaysDirty(t *testing.T) {
	r := NewResolver()

	local := &models.Account{
		Email:      "jane@example.com",
		Role:       models.RoleRenter,
		SyncStatus: models.SyncStatus{Dirty: false, UpdatedAt: 300},
	}
	remote := &models.Account{
		Email:      "jane@example.com",
		Role:       models.RoleOwner,
		SyncStatus: models.SyncStatus{UpdatedAt: 200},
	}

	out := r.MergeAccount(local, remote)
	assert.Equal(t, models.RoleRenter, out.Role)
	assert.True(t, out.Dirty, "diverging local record must be re-pushed")
	assert.Equal(t, int64(300), out.UpdatedAt)
}

func TestMergePayment_BalanceSyncedIsSticky(t *testing.T) {
	r := NewResolver()

	local := &models.Payment{
		ID:            "p1",
		Status:        models.PaymentCaptured,
		BalanceSynced: true,
		SyncStatus:    models.SyncStatus{UpdatedAt: 100},
	}
	remote := &models.Payment{
		ID:            "p1",
		Status:        models.PaymentCaptured,
		BalanceSynced: false,
		SyncStatus:    models.SyncStatus{UpdatedAt: 200},
	}

	out := r.MergePayment(local, remote)
	assert.True(t, out.BalanceSynced, "an applied payment must never flip back")
	assert.Equal(t, int64(200), out.UpdatedAt)

	// And the other direction.
	local.BalanceSynced = false
	remote.BalanceSynced = true
	remote.UpdatedAt = 50
	out = r.MergePayment(local, remote)
	assert.True(t, out.BalanceSynced)
	assert.Equal(t, int64(100), out.UpdatedAt)
}

func TestMergeIncomeRecord_BalanceSyncedIsSticky(t *testing.T) {
	r := NewResolver()

	local := &models.IncomeRecord{
		ID:            "i1",
		BalanceSynced: true,
		SyncStatus:    models.SyncStatus{UpdatedAt: 100},
	}
	remote := &models.IncomeRecord{
		ID:            "i1",
		BalanceSynced: false,
		SyncStatus:    models.SyncStatus{UpdatedAt: 500},
	}

	out := r.MergeIncomeRecord(local, remote)
	assert.True(t, out.BalanceSynced)
}

func TestMergeRental_LastWriter(t *testing.T) {
	r := NewResolver()

	local := &models.Rental{
		ID:         "r1",
		Status:     models.RentalPending,
		SyncStatus: models.SyncStatus{Dirty: true, UpdatedAt: 100},
	}
	remote := &models.Rental{
		ID:         "r1",
		Status:     models.RentalConfirmed,
		SyncStatus: models.SyncStatus{UpdatedAt: 200},
	}

	out := r.MergeRental(local, remote)
	assert.Equal(t, models.RentalConfirmed, out.Status)
	assert.False(t, out.Dirty)

	// Local wins and keeps its queued change.
	local.UpdatedAt = 300
	out = r.MergeRental(local, remote)
	assert.Equal(t, models.RentalPending, out.Status)
	assert.True(t, out.Dirty)
}
