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
	"github.com/dmitrijs2005/movesync/internal/repositories/payments"
)

type paymentDoc struct {
	ID            string `json:"id" validate:"required"`
	RentalID      string `json:"rentalId" validate:"required"`
	PayerEmail    string `json:"payerEmail" validate:"required,email"`
	OwnerAmount   int64  `json:"ownerAmount"`
	DriverAmount  int64  `json:"driverAmount"`
	PlatformFee   int64  `json:"platformFee"`
	Method        string `json:"method" validate:"required"`
	Status        string `json:"status" validate:"required"`
	BalanceSynced bool   `json:"balanceSynced"`
	CreatedAt     int64  `json:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt"`
}

func decodePaymentDoc(raw json.RawMessage) (*paymentDoc, error) {
	var doc paymentDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParsePaymentMethod(doc.Method); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParsePaymentStatus(doc.Status); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *paymentDoc) toModel() *models.Payment {
	return &models.Payment{
		ID:            d.ID,
		RentalID:      d.RentalID,
		PayerEmail:    d.PayerEmail,
		OwnerAmount:   d.OwnerAmount,
		DriverAmount:  d.DriverAmount,
		PlatformFee:   d.PlatformFee,
		Method:        models.PaymentMethod(d.Method),
		Status:        models.PaymentStatus(d.Status),
		BalanceSynced: d.BalanceSynced,
		CreatedAt:     d.CreatedAt,
		SyncStatus:    models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

// PaymentAdapter syncs rental payments. Scope is the rental id. Pulled
// payments that are captured wallet payments and not yet applied are handed
// to the wallet, which debits the payer exactly once.
type PaymentAdapter struct {
	repo     payments.Repository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	wallet   *Wallet
	log      logging.Logger
}

// NewPaymentAdapter wires the payment sync adapter.
func NewPaymentAdapter(repo payments.Repository, col remote.Collection, resolver *Resolver, wallet *Wallet, log logging.Logger) *PaymentAdapter {
	log = log.With("entity", models.EntityPayment)
	return &PaymentAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		wallet:   wallet,
		log:      log,
	}
}

func (a *PaymentAdapter) EntityType() models.EntityType { return models.EntityPayment }

func (a *PaymentAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, p := range items {
		if err := a.pushOne(ctx, p); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", p.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *PaymentAdapter) PushSingle(ctx context.Context, id string) error {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, p)
}

func (a *PaymentAdapter) pushOne(ctx context.Context, p *models.Payment) error {
	fields := map[string]any{
		"id":            p.ID,
		"rentalId":      p.RentalID,
		"payerEmail":    p.PayerEmail,
		"ownerAmount":   p.OwnerAmount,
		"driverAmount":  p.DriverAmount,
		"platformFee":   p.PlatformFee,
		"method":        string(p.Method),
		"status":        string(p.Status),
		"balanceSynced": p.BalanceSynced,
		"createdAt":     p.CreatedAt,
		"updatedAt":     p.UpdatedAt,
	}
	if err := a.col.Upsert(ctx, p.ID, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, p.ID, p.UpdatedAt)
}

func (a *PaymentAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"rentalId": scopeKey})
	if err != nil {
		return fmt.Errorf("payment pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote payment document", "error", err)
		}
	}
	return nil
}

func (a *PaymentAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodePaymentDoc(raw)
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
		merged = a.resolver.MergePayment(local, merged)
	}

	if err := a.repo.Save(ctx, merged); err != nil {
		return err
	}

	if !merged.BalanceSynced {
		if _, err := a.wallet.ApplyPayment(ctx, merged); err != nil {
			return err
		}
	}
	return nil
}

type incomeDoc struct {
	ID             string `json:"id" validate:"required"`
	RentalID       string `json:"rentalId" validate:"required"`
	RecipientEmail string `json:"recipientEmail" validate:"required,email"`
	Amount         int64  `json:"amount"`
	Source         string `json:"source" validate:"required"`
	BalanceSynced  bool   `json:"balanceSynced"`
	CreatedAt      int64  `json:"createdAt"`
	UpdatedAt      int64  `json:"updatedAt"`
}

func decodeIncomeDoc(raw json.RawMessage) (*incomeDoc, error) {
	var doc incomeDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, malformed(err)
	}
	if err := validate.Struct(&doc); err != nil {
		return nil, malformed(err)
	}
	if _, err := models.ParseTxnSource(doc.Source); err != nil {
		return nil, malformed(err)
	}
	return &doc, nil
}

func (d *incomeDoc) toModel() *models.IncomeRecord {
	return &models.IncomeRecord{
		ID:             d.ID,
		RentalID:       d.RentalID,
		RecipientEmail: d.RecipientEmail,
		Amount:         d.Amount,
		Source:         models.TxnSource(d.Source),
		BalanceSynced:  d.BalanceSynced,
		CreatedAt:      d.CreatedAt,
		SyncStatus:     models.SyncStatus{UpdatedAt: d.UpdatedAt},
	}
}

// IncomeAdapter syncs income records. Scope is the recipient email. Pulled
// records not yet applied are handed to the wallet, which credits the
// recipient exactly once.
type IncomeAdapter struct {
	repo     payments.IncomeRepository
	col      remote.Collection
	ledger   *Ledger
	resolver *Resolver
	wallet   *Wallet
	log      logging.Logger
}

// NewIncomeAdapter wires the income record sync adapter.
func NewIncomeAdapter(repo payments.IncomeRepository, col remote.Collection, resolver *Resolver, wallet *Wallet, log logging.Logger) *IncomeAdapter {
	log = log.With("entity", models.EntityIncomeRecord)
	return &IncomeAdapter{
		repo:     repo,
		col:      col,
		ledger:   NewLedger(statusFunc(repo.MarkSynced), log),
		resolver: resolver,
		wallet:   wallet,
		log:      log,
	}
}

func (a *IncomeAdapter) EntityType() models.EntityType { return models.EntityIncomeRecord }

func (a *IncomeAdapter) PushUnsynced(ctx context.Context, scope string) (PushStats, error) {
	items, err := a.repo.GetUnsynced(ctx, scope)
	if err != nil {
		return PushStats{}, fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}

	var stats PushStats
	for _, rec := range items {
		if err := a.pushOne(ctx, rec); err != nil {
			a.log.Warn(ctx, "push failed, record stays queued", "id", rec.ID, "error", err)
			stats.Failed++
			continue
		}
		stats.Pushed++
	}
	return stats, nil
}

func (a *IncomeAdapter) PushSingle(ctx context.Context, id string) error {
	rec, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return a.pushOne(ctx, rec)
}

func (a *IncomeAdapter) pushOne(ctx context.Context, rec *models.IncomeRecord) error {
	fields := map[string]any{
		"id":             rec.ID,
		"rentalId":       rec.RentalID,
		"recipientEmail": rec.RecipientEmail,
		"amount":         rec.Amount,
		"source":         string(rec.Source),
		"balanceSynced":  rec.BalanceSynced,
		"createdAt":      rec.CreatedAt,
		"updatedAt":      rec.UpdatedAt,
	}
	if err := a.col.Upsert(ctx, rec.ID, fields); err != nil {
		return err
	}
	return a.ledger.Finish(ctx, rec.ID, rec.UpdatedAt)
}

func (a *IncomeAdapter) PullForScope(ctx context.Context, scopeKey string) error {
	docs, err := a.col.Find(ctx, map[string]any{"recipientEmail": scopeKey})
	if err != nil {
		return fmt.Errorf("income pull: %w", err)
	}
	for _, raw := range docs {
		if err := a.applyRemote(ctx, raw); err != nil {
			if fatal(err) {
				return err
			}
			a.log.Warn(ctx, "skipping remote income document", "error", err)
		}
	}
	return nil
}

func (a *IncomeAdapter) applyRemote(ctx context.Context, raw json.RawMessage) error {
	doc, err := decodeIncomeDoc(raw)
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
		merged = a.resolver.MergeIncomeRecord(local, merged)
	}

	if err := a.repo.Save(ctx, merged); err != nil {
		return err
	}

	if !merged.BalanceSynced {
		if _, err := a.wallet.ApplyIncome(ctx, merged); err != nil {
			return err
		}
	}
	return nil
}
