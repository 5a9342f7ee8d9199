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
	"github.com/dmitrijs2005/movesync/internal/repositories/balances"
)

type balanceDoc struct {
	OwnerEmail string `json:"ownerEmail" validate:"required,email"`
	Amount     int64  `json:"amount"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

func decodeBalanceDoc(raw json.RawMessage) (*balanceDoc, error) {
	var doc balanceDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

// BalanceAdapter syncs wallet balances. The remote amount is authoritative:
// a pull replaces the local amount unconditionally, whatever the local
// timestamps or dirty flag say.
type BalanceAdapter struct {
	repo   balances.Repository
	col    remote.Collection
	ledger *Ledger
	log    logging.Logger
}

// NewBalanceAdapter wires the balance sync adapter.
func NewBalanceAdapter(repo balances.Repository, col remote.Collection, log logging.Logger) *BalanceAdapter {
	log = log.With("entity", models.EntityBalance)
	return &BalanceAdapter{
		repo:   repo,
		col:    col,
		ledger: NewLedger(statusFunc(repo.MarkSynced), log),
		log:    log,
	}
}

func (a *BalanceAdapter) EntityType() models.EntityType { return models.EntityBalance }

func (a *BalanceAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, b := range items {
		if err := a.pushOne(ctx, b); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "owner", b.OwnerEmail, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *BalanceAdapter) PushSingle(ctx context.Context, id string) error {
	b, err := a.repo.GetByOwner(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, b)
}

func (a *BalanceAdapter) pushOne(ctx context.Context, b *models.Balance) error {
	fields := map[string]any{
		"ownerEmail": b.OwnerEmail,
		"amount":     b.Amount,
		"createdAt":  b.CreatedAt,
		"updatedAt":  b.UpdatedAt,
	}
	if err := a.col.Upsert(ctx, b.OwnerEmail, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, b.OwnerEmail, b.UpdatedAt)
}

func (a *BalanceAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"ownerEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("balance pull: %w", err)
	}
	for _, raw := range docs {
		doc, err := decodeBalanceDoc(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping remote balance document", "error", err)
			continue
		}
		// Remote authority: no resolver consultation, no timestamp
		// comparison. The local amount is simply replaced and the record
		// marked synced.
		if err := a.repo.ReplaceFromRemote(ctx, doc.OwnerEmail, doc.Amount, doc.CreatedAt, doc.UpdatedAt); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Error(ctx, "failed to apply remote balance", "owner", doc.OwnerEmail, "error", err)
		}
	}
	return nil
}

type txnDoc struct {
	ID                string `json:"id" validate:"required"`
	OwnerEmail        string `json:"ownerEmail" validate:"required,email"`
	CounterpartyEmail string `json:"counterpartyEmail,omitempty"`
	Direction         string `json:"direction" validate:"required"`
	Source            string `json:"source" validate:"required"`
	Amount            int64  `json:"amount"`
	BalanceBefore     int64  `json:"balanceBefore"`
	BalanceAfter      int64  `json:"balanceAfter"`
	CreatedAt         int64  `json:"createdAt"`
	UpdatedAt         int64  `json:"updatedAt"`
}

func decodeTxnDoc(raw json.RawMessage) (*txnDoc, error) {
	var doc txnDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseTxnDirection(doc.Direction); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseTxnSource(doc.Source); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

// TxnAdapter syncs the append-only balance transaction ledger. Pulls only
// ever insert missing entries; an existing local entry is never touched.
type TxnAdapter struct {
	repo   balances.TxnRepository
	col    remote.Collection
	ledger *Ledger
	log    logging.Logger
}

// NewTxnAdapter wires the balance transaction sync adapter.
func NewTxnAdapter(repo balances.TxnRepository, col remote.Collection, log logging.Logger) *TxnAdapter {
	log = log.With("entity", models.EntityBalanceTransaction)
	return &TxnAdapter{
		repo:   repo,
		col:    col,
		ledger: NewLedger(statusFunc(repo.MarkSynced), log),
		log:    log,
	}
}

func (a *TxnAdapter) EntityType() models.EntityType { return models.EntityBalanceTransaction }

func (a *TxnAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, t := range items {
		if err := a.pushOne(ctx, t); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", t.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *TxnAdapter) PushSingle(ctx context.Context, id string) error {
	t, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, t)
}

func (a *TxnAdapter) pushOne(ctx context.Context, t *models.BalanceTransaction) error {
	fields := map[string]any{
		"id":            t.ID,
		"ownerEmail":    t.OwnerEmail,
		"direction":     string(t.Direction),
		"source":        string(t.Source),
		"amount":        t.Amount,
		"balanceBefore": t.BalanceBefore,
		"balanceAfter":  t.BalanceAfter,
		"createdAt":     t.CreatedAt,
		"updatedAt":     t.UpdatedAt,
	}
	if t.CounterpartyEmail != "" {
		fields["counterpartyEmail"] = t.CounterpartyEmail
	}
	if err := a.col.Upsert(ctx, t.ID, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, t.ID, t.UpdatedAt)
}

func (a *TxnAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"ownerEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("transaction pull: %w", err)
	}
	for _, raw := range docs {
		doc, err := decodeTxnDoc(raw)
		if err != nil {
			a.log.Warn(ctx, "skipping remote transaction document", "error", err)
			continue
		}

		_, err = a.repo.GetByID(ctx, doc.ID)
		if err == nil {
			// Append-only: the local entry is immutable.
			continue
		}
		if !errors.Is(err, common.ErrorNotFound) {
			if fatal(err) {
				return err
			}
			a.log.Error(ctx, "failed to look up local transaction", "id", doc.ID, "error", err)
			continue
		}

		t := &models.BalanceTransaction{
			ID:                doc.ID,
			OwnerEmail:        doc.OwnerEmail,
			CounterpartyEmail: doc.CounterpartyEmail,
			Direction:         models.TxnDirection(doc.Direction),
			Source:            models.TxnSource(doc.Source),
			Amount:            doc.Amount,
			BalanceBefore:     doc.BalanceBefore,
			BalanceAfter:      doc.BalanceAfter,
			CreatedAt:         doc.CreatedAt,
			SyncStatus:        models.SyncStatus{Dirty: false, UpdatedAt: doc.UpdatedAt},
		}
		if err := a.repo.Insert(ctx, t); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Error(ctx, "failed to insert pulled transaction", "id", doc.ID, "error", err)
		}
	}
	return nil
}
