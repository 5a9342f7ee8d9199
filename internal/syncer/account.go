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
	"github.com/dmitrijs2005/movesync/internal/repositories/accounts"
)

// accountDoc is the wire shape of an account. The credential hash is
// deliberately absent: it never crosses the remote boundary in either
// direction.
type accountDoc struct {
	Email       string `json:"email" validate:"required,email"`
	Role        string `json:"role" validate:"required"`
	DisplayName string `json:"displayName,omitempty"`
	Phone       string `json:"phone,omitempty"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
}

func decodeAccountDoc(raw json.RawMessage) (*accountDoc, error) {
	var doc accountDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseRole(doc.Role); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *accountDoc) toModel() *models.Account {
	return &models.Account{
		Email:       d.Email,
		Role:        models.Role(d.Role),
		DisplayName: d.DisplayName,
		Phone:       d.Phone,
		CreatedAt:   d.CreatedAt,
		SyncStatus:  models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

func accountFields(a *models.Account) map[string]any {
	fields := map[string]any{
		"email":     a.Email,
		"role":      string(a.Role),
		"createdAt": a.CreatedAt,
		"updatedAt": a.UpdatedAt,
	}
	if a.DisplayName != "" {
		fields["displayName"] = a.DisplayName
	}
	if a.Phone != "" {
		fields["phone"] = a.Phone
	}
	return fields
}

// AccountAdapter syncs accounts. The account scope is the account itself,
// so push operations ignore the scope argument and cover every dirty row.
type AccountAdapter struct {
	repo     accounts.Repository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	log      logging.Logger
}

// NewAccountAdapter wires the account sync adapter.
func NewAccountAdapter(repo accounts.Repository, col remote.Collection, resolver *Resolver, log logging.Logger) *AccountAdapter {
	log = log.With("entity", models.EntityAccount)
	return &AccountAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		log:      log,
	}
}

func (a *AccountAdapter) EntityType() models.EntityType { return models.EntityAccount }

func (a *AccountAdapter) PushUnsynced(ctx context.Context, _ string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, acc := range items {
		if err := a.pushOne(ctx, acc); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "email", acc.Email, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *AccountAdapter) PushSingle(ctx context.Context, id string) error {
	acc, err := a.repo.GetByEmail(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, acc)
}

func (a *AccountAdapter) pushOne(ctx context.Context, acc *models.Account) error {
	if err := a.col.Upsert(ctx, acc.Email, accountFields(acc)); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, acc.Email, acc.UpdatedAt)
}

func (a *AccountAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"email": scopeKey})
	if err != nil {
		return fmt.Errorf("account pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote account document", "error", err)
		}
	}
	return nil
}

// applyRemote reconciles a single pulled account document. It is shared by
// PullForScope and the change-notification watcher.
func (a *AccountAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeAccountDoc(raw)
	if err != nil {
		return err
	}

	local, err := a.repo.GetByEmail(ctx, doc.Email)
	if errors.Is(err, common.ErrorNotFound) {
		acc := doc.toModel()
		acc.Dirty = false
		return a.repo.Save(ctx, acc)
	}
	if err != nil {
		return err
	}

	return a.repo.Save(ctx, a.resolver.MergeAccount(local, doc.toModel()))
}

// removeLocal drops the local account row after a remote-driven removal.
func (a *AccountAdapter) removeLocal(ctx context.Context, email string) error {
	return a.repo.DeleteByEmail(ctx, email)
}

// statusFunc adapts a repository MarkSynced method to the StatusStore
// interface without an intermediate struct.
type statusFunc func(ctx context.Context, id string, seenUpdatedAt int64) error

func (f statusFunc) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	return f(ctx, id, seenUpdatedAt)
}
