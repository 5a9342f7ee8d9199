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
)

type rentalDoc struct {
	ID              string `json:"id" validate:"required"`
	VehicleID       string `json:"vehicleId" validate:"required"`
	RenterEmail     string `json:"renterEmail" validate:"required,email"`
	OwnerEmail      string `json:"ownerEmail" validate:"required,email"`
	DriverEmail     string `json:"driverEmail,omitempty"`
	Status          string `json:"status" validate:"required"`
	StartAt         int64  `json:"startAt"`
	EndAt           int64  `json:"endAt"`
	AssignedAt      int64  `json:"assignedAt,omitempty"`
	DeliveredAt     int64  `json:"deliveredAt,omitempty"`
	ReturnedEarlyAt int64  `json:"returnedEarlyAt,omitempty"`
	PriceTotal      int64  `json:"priceTotal"`
	CreatedAt       int64  `json:"createdAt"`
	UpdatedAt       int64  `json:"updatedAt"`
}

func decodeRentalDoc(raw json.RawMessage) (*rentalDoc, error) {
	var doc rentalDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseRentalStatus(doc.Status); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *rentalDoc) toModel() *models.Rental {
	return &models.Rental{
		ID:              d.ID,
		VehicleID:       d.VehicleID,
		RenterEmail:     d.RenterEmail,
		OwnerEmail:      d.OwnerEmail,
		DriverEmail:     d.DriverEmail,
		Status:          models.RentalStatus(d.Status),
		StartAt:         d.StartAt,
		EndAt:           d.EndAt,
		AssignedAt:      d.AssignedAt,
		DeliveredAt:     d.DeliveredAt,
		ReturnedEarlyAt: d.ReturnedEarlyAt,
		PriceTotal:      d.PriceTotal,
		CreatedAt:       d.CreatedAt,
		SyncStatus:      models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

func rentalFields(rr *models.Rental) map[string]any {
	fields := map[string]any{
		"id":          rr.ID,
		"vehicleId":   rr.VehicleID,
		"renterEmail": rr.RenterEmail,
		"ownerEmail":  rr.OwnerEmail,
		"status":      string(rr.Status),
		"startAt":     rr.StartAt,
		"endAt":       rr.EndAt,
		"priceTotal":  rr.PriceTotal,
		"createdAt":   rr.CreatedAt,
		"updatedAt":   rr.UpdatedAt,
	}
	if rr.DriverEmail != "" {
		fields["driverEmail"] = rr.DriverEmail
	}
	if rr.AssignedAt != 0 {
		fields["assignedAt"] = rr.AssignedAt
	}
	if rr.DeliveredAt != 0 {
		fields["deliveredAt"] = rr.DeliveredAt
	}
	if rr.ReturnedEarlyAt != 0 {
		fields["returnedEarlyAt"] = rr.ReturnedEarlyAt
	}
	return fields
}

// RentalAdapter syncs vehicle rentals. Scope is the renter email.
type RentalAdapter struct {
	repo     rentals.Repository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewRentalAdapter wires the rental sync adapter.
func NewRentalAdapter(repo rentals.Repository, col remote.Collection, resolver *Resolver, log logging.Logger) *RentalAdapter {
	log = log.With("entity", models.EntityRental)
	return &RentalAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *RentalAdapter) EntityType() models.EntityType { return models.EntityRental }

func (a *RentalAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, rr := range items {
		if err := a.pushOne(ctx, rr); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", rr.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *RentalAdapter) PushSingle(ctx context.Context, id string) error {
	rr, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, rr)
}

func (a *RentalAdapter) pushOne(ctx context.Context, rr *models.Rental) error {
	if err := a.col.Upsert(ctx, rr.ID, rentalFields(rr)); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, rr.ID, rr.UpdatedAt)
}

func (a *RentalAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"renterEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("rental pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote rental document", "error", err)
		}
	}
	return nil
}

func (a *RentalAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeRentalDoc(raw)
	if err != nil {
		return err
	}

	local, err := a.repo.GetByID(ctx, doc.ID)
	if errors.Is(err, common.ErrorNotFound) {
		rr := doc.toModel()
		rr.Dirty = false
		return a.repo.Save(ctx, rr)
	}
	if err != nil {
		return err
	}

	return a.repo.Save(ctx, a.resolver.MergeRental(local, doc.toModel()))
}

type secondaryDoc struct {
	ID          string `json:"id" validate:"required"`
	RenterEmail string `json:"renterEmail" validate:"required,email"`
	DriverEmail string `json:"driverEmail" validate:"required,email"`
	Status      string `json:"status" validate:"required"`
	StartAt     int64  `json:"startAt"`
	EndAt       int64  `json:"endAt"`
	AssignedAt  int64  `json:"assignedAt,omitempty"`
	CompletedAt int64  `json:"completedAt,omitempty"`
	PriceTotal  int64  `json:"priceTotal"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func decodeSecondaryDoc(raw json.RawMessage) (*secondaryDoc, error) {
	var doc secondaryDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseRentalStatus(doc.Status); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *secondaryDoc) toModel() *models.SecondaryRental {
	return &models.SecondaryRental{
		ID:          d.ID,
		RenterEmail: d.RenterEmail,
		DriverEmail: d.DriverEmail,
		Status:      models.RentalStatus(d.Status),
		StartAt:     d.StartAt,
		EndAt:       d.EndAt,
		AssignedAt:  d.AssignedAt,
		CompletedAt: d.CompletedAt,
		PriceTotal:  d.PriceTotal,
		CreatedAt:   d.CreatedAt,
		SyncStatus:  models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

// SecondaryRentalAdapter syncs driver-only hires. Scope is the renter email.
type SecondaryRentalAdapter struct {
	repo     rentals.SecondaryRepository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewSecondaryRentalAdapter wires the driver-only hire sync adapter.
func NewSecondaryRentalAdapter(repo rentals.SecondaryRepository, col remote.Collection, resolver *Resolver, log logging.Logger) *SecondaryRentalAdapter {
	log = log.With("entity", models.EntitySecondaryRental)
	return &SecondaryRentalAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *SecondaryRentalAdapter) EntityType() models.EntityType { return models.EntitySecondaryRental }

func (a *SecondaryRentalAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, sr := range items {
		if err := a.pushOne(ctx, sr); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", sr.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *SecondaryRentalAdapter) PushSingle(ctx context.Context, id string) error {
	sr, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, sr)
}

func (a *SecondaryRentalAdapter) pushOne(ctx context.Context, sr *models.SecondaryRental) error {
	fields := map[string]any{
		"id":          sr.ID,
		"renterEmail": sr.RenterEmail,
		"driverEmail": sr.DriverEmail,
		"status":      string(sr.Status),
		"startAt":     sr.StartAt,
		"endAt":       sr.EndAt,
		"priceTotal":  sr.PriceTotal,
		"createdAt":   sr.CreatedAt,
		"updatedAt":   sr.UpdatedAt,
	}
	if sr.AssignedAt != 0 {
		fields["assignedAt"] = sr.AssignedAt
	}
	if sr.CompletedAt != 0 {
		fields["completedAt"] = sr.CompletedAt
	}
	if err := a.col.Upsert(ctx, sr.ID, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, sr.ID, sr.UpdatedAt)
}

func (a *SecondaryRentalAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"renterEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("driver rental pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote driver rental document", "error", err)
		}
	}
	return nil
}

func (a *SecondaryRentalAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeSecondaryDoc(raw)
	if err != nil {
		return err
	}

	local, err := a.repo.GetByID(ctx, doc.ID)
	if errors.Is(err, common.ErrorNotFound) {
		sr := doc.toModel()
		sr.Dirty = false
		return a.repo.Save(ctx, sr)
	}
	if err != nil {
		return err
	}

	return a.repo.Save(ctx, a.resolver.MergeSecondaryRental(local, doc.toModel()))
}
