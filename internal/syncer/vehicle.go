package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/remote"
	"github.com/dmitrijs2005/movesync/internal/repositories/rentals"
	"github.com/dmitrijs2005/movesync/internal/repositories/vehicles"
)

type vehicleDoc struct {
	ID         string `json:"id" validate:"required"`
	OwnerEmail string `json:"ownerEmail" validate:"required,email"`
	Make       string `json:"make" validate:"required"`
	Model      string `json:"model" validate:"required"`
	Plate      string `json:"plate,omitempty"`
	DailyRate  int64  `json:"dailyRate"`
	Status     string `json:"status" validate:"required"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

func decodeVehicleDoc(raw json.RawMessage) (*vehicleDoc, error) {
	var doc vehicleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseVehicleStatus(doc.Status); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *vehicleDoc) toModel() *models.Vehicle {
	return &models.Vehicle{
		ID:         d.ID,
		OwnerEmail: d.OwnerEmail,
		Make:       d.Make,
		Model:      d.Model,
		Plate:      d.Plate,
		DailyRate:  d.DailyRate,
		Status:     models.VehicleStatus(d.Status),
		CreatedAt:  d.CreatedAt,
		SyncStatus: models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

func vehicleFields(v *models.Vehicle) map[string]any {
	fields := map[string]any{
		"id":         v.ID,
		"ownerEmail": v.OwnerEmail,
		"make":       v.Make,
		"model":      v.Model,
		"dailyRate":  v.DailyRate,
		"status":     string(v.Status),
		"createdAt":  v.CreatedAt,
		"updatedAt":  v.UpdatedAt,
	}
	if v.Plate != "" {
		fields["plate"] = v.Plate
	}
	return fields
}

// VehicleAdapter syncs listed vehicles. Scope is the owner email.
//
// Occupancy is derived state: after every pull the adapter recomputes it
// from the locally known active rentals and, when the stored status
// disagrees, repairs both the local row and the remote copy. Maintenance is
// owner-set and never touched by the recompute.
type VehicleAdapter struct {
	repo     vehicles.Repository
	rentals  rentals.Repository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewVehicleAdapter wires the vehicle sync adapter.
func NewVehicleAdapter(repo vehicles.Repository, rentalRepo rentals.Repository, col remote.Collection, resolver *Resolver, log logging.Logger) *VehicleAdapter {
	log = log.With("entity", models.EntityVehicle)
	return &VehicleAdapter{
		repo:     repo,
		rentals:  rentalRepo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *VehicleAdapter) EntityType() models.EntityType { return models.EntityVehicle }

func (a *VehicleAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, v := range items {
		if err := a.pushOne(ctx, v); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", v.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *VehicleAdapter) PushSingle(ctx context.Context, id string) error {
	v, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, v)
}

func (a *VehicleAdapter) pushOne(ctx context.Context, v *models.Vehicle) error {
	if err := a.col.Upsert(ctx, v.ID, vehicleFields(v)); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, v.ID, v.UpdatedAt)
}

func (a *VehicleAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"ownerEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("vehicle pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote vehicle document", "error", err)
		}
	}
	return nil
}

func (a *VehicleAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeVehicleDoc(raw)
	if err != nil {
		return err
	}

	merged := doc.toModel()
	local, err := a.repo.GetByID(ctx, doc.ID)
	switch {
	case errors.Is(err, common.ErrorNotFound):
		merged.Dirty = false
	case err != nil:
		return err
	default:
		merged = a.resolver.MergeVehicle(local, merged)
	}

	if err := a.repo.Save(ctx, merged); err != nil {
		return err
	}
	return a.repairStatus(ctx, merged)
}

// repairStatus recomputes the occupancy of a vehicle from the active rentals
// and overwrites both copies when the stored status is wrong. The repaired
// local row is written clean; the remote repair is best effort and falls
// back to the regular push queue on failure.
func (a *VehicleAdapter) repairStatus(ctx context.Context, v *models.Vehicle) error {
	if v.Status == models.VehicleMaintenance {
		return nil
	}

	active, err := a.rentals.ActiveCountForVehicle(ctx, v.ID)
	if err != nil {
		return err
	}
	want := models.VehicleAvailable
	if active > 0 {
		want = models.VehicleOccupied
	}
	if v.Status == want {
		return nil
	}

	a.log.Info(ctx, "repairing derived vehicle status", "id", v.ID, "from", v.Status, "to", want)
	now := nowMillis()
	if err := a.repo.UpdateStatus(ctx, v.ID, want, now, false); err != nil {
		return err
	}

	repaired := *v
	repaired.Status = want
	repaired.UpdatedAt = now
	if err := a.col.Upsert(ctx, repaired.ID, vehicleFields(&repaired)); err != nil {
		// Queue the correction for the next push instead of failing the pull.
		a.log.Warn(ctx, "remote status repair failed, queueing for next push", "id", v.ID, "error", err)
		return a.repo.UpdateStatus(ctx, v.ID, want, now, true)
	}
	return nil
}

type personalVehicleDoc struct {
	ID         string `json:"id" validate:"required"`
	OwnerEmail string `json:"ownerEmail" validate:"required,email"`
	Make       string `json:"make" validate:"required"`
	Model      string `json:"model" validate:"required"`
	Plate      string `json:"plate,omitempty"`
	DailyRate  int64  `json:"dailyRate"`
	Available  bool   `json:"available"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

func decodePersonalVehicleDoc(raw json.RawMessage) (*personalVehicleDoc, error) {
	var doc personalVehicleDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *personalVehicleDoc) toModel() *models.PersonalVehicle {
	return &models.PersonalVehicle{
		ID:         d.ID,
		OwnerEmail: d.OwnerEmail,
		Make:       d.Make,
		Model:      d.Model,
		Plate:      d.Plate,
		DailyRate:  d.DailyRate,
		Available:  d.Available,
		CreatedAt:  d.CreatedAt,
		SyncStatus: models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

// PersonalVehicleAdapter syncs owner-private vehicles offered for
// driver-only hires. Scope is the owner email.
type PersonalVehicleAdapter struct {
	repo     vehicles.PersonalRepository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewPersonalVehicleAdapter wires the personal vehicle sync adapter.
func NewPersonalVehicleAdapter(repo vehicles.PersonalRepository, col remote.Collection, resolver *Resolver, log logging.Logger) *PersonalVehicleAdapter {
	log = log.With("entity", models.EntityPersonalVehicle)
	return &PersonalVehicleAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *PersonalVehicleAdapter) EntityType() models.EntityType { return models.EntityPersonalVehicle }

func (a *PersonalVehicleAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, v := range items {
		if err := a.pushOne(ctx, v); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", v.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *PersonalVehicleAdapter) PushSingle(ctx context.Context, id string) error {
	v, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, v)
}

func (a *PersonalVehicleAdapter) pushOne(ctx context.Context, v *models.PersonalVehicle) error {
	fields := map[string]any{
		"id":         v.ID,
		"ownerEmail": v.OwnerEmail,
		"make":       v.Make,
		"model":      v.Model,
		"dailyRate":  v.DailyRate,
		"available":  v.Available,
		"createdAt":  v.CreatedAt,
		"updatedAt":  v.UpdatedAt,
	}
	if v.Plate != "" {
		fields["plate"] = v.Plate
	}
	if err := a.col.Upsert(ctx, v.ID, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, v.ID, v.UpdatedAt)
}

func (a *PersonalVehicleAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"ownerEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("personal vehicle pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote personal vehicle document", "error", err)
		}
	}
	return nil
}

func (a *PersonalVehicleAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodePersonalVehicleDoc(raw)
	if err != nil {
		return err
	}

	local, err := a.repo.GetByID(ctx, doc.ID)
	if errors.Is(err, common.ErrorNotFound) {
		v := doc.toModel()
		v.Dirty = false
		return a.repo.Save(ctx, v)
	}
	if err != nil {
		return err
	}

	return a.repo.Save(ctx, a.resolver.MergePersonalVehicle(local, doc.toModel()))
}
