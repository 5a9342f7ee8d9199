package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/logging"
	"github.com/dmitrijs2005/movesync/internal/models"
	"github.com/dmitrijs2005/movesync/internal/remote"
	"github.com/dmitrijs2005/movesync/internal/repositories/drivers"
)

type driverDoc struct {
	Email          string `json:"email" validate:"required,email"`
	Certifications string `json:"certifications,omitempty"`
	Online         bool   `json:"online"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

func decodeDriverDoc(raw json.RawMessage) (*driverDoc, error) {
	var doc driverDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *driverDoc) toModel() *models.DriverProfile {
	p := &models.DriverProfile{
		Email:      d.Email,
		Online:     d.Online,
		CreatedAt:  d.CreatedAt,
		SyncStatus: models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
	if d.Certifications != "" {
		p.Certifications = strings.Split(d.Certifications, ",")
	}
	return p
}

// DriverAdapter syncs driver profiles. Scope is the driver email.
type DriverAdapter struct {
	repo     drivers.Repository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewDriverAdapter wires the driver profile sync adapter.
func NewDriverAdapter(repo drivers.Repository, col remote.Collection, resolver *Resolver, log logging.Logger) *DriverAdapter {
	log = log.With("entity", models.EntityDriverProfile)
	return &DriverAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *DriverAdapter) EntityType() models.EntityType { return models.EntityDriverProfile }

func (a *DriverAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, p := range items {
		if err := a.pushOne(ctx, p); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "email", p.Email, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *DriverAdapter) PushSingle(ctx context.Context, id string) error {
	p, err := a.repo.GetByEmail(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, p)
}

func (a *DriverAdapter) pushOne(ctx context.Context, p *models.DriverProfile) error {
	fields := map[string]any{
		"email":     p.Email,
		"online":    p.Online,
		"createdAt": p.CreatedAt,
		"updatedAt": p.UpdatedAt,
	}
	if len(p.Certifications) > 0 {
		fields["certifications"] = strings.Join(p.Certifications, ",")
	}
	if err := a.col.Upsert(ctx, p.Email, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, p.Email, p.UpdatedAt)
}

func (a *DriverAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"email": scopeKey})
	if err != nil {
		return fmt.Errorf("driver profile pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote driver profile document", "error", err)
		}
	}
	return nil
}

func (a *DriverAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeDriverDoc(raw)
	if err != nil {
		return err
	}

	local, err := a.repo.GetByEmail(ctx, doc.Email)
	if errors.Is(err, common.ErrorNotFound) {
		p := doc.toModel()
		p.Dirty = false
		return a.repo.Save(ctx, p)
	}
	if err != nil {
		return err
	}

	return a.repo.Save(ctx, a.resolver.MergeDriverProfile(local, doc.toModel()))
}
