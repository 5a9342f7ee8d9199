package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/dbx"
	"github.com/dmitrijs2005/movesync/internal/models"
)

const paymentColumns = `id, rental_id, payer_email, owner_amount, driver_amount, platform_fee,
	method, status, balance_synced, created_at, dirty, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = ?`
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.Payment) error {
	// balance_synced is sticky on update: once a payment has been applied
	// to a balance the flag must never be reset by a merge.
	query := `INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rental_id = excluded.rental_id,
			payer_email = excluded.payer_email,
			owner_amount = excluded.owner_amount,
			driver_amount = excluded.driver_amount,
			platform_fee = excluded.platform_fee,
			method = excluded.method,
			status = excluded.status,
			balance_synced = MAX(payments.balance_synced, excluded.balance_synced),
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty, applied := 0, 0
	if p.Dirty {
		dirty = 1
	}
	if p.BalanceSynced {
		applied = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.RentalID, p.PayerEmail, p.OwnerAmount, p.DriverAmount, p.PlatformFee,
		string(p.Method), string(p.Status), applied, p.CreatedAt, dirty, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert payment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, rentalID string) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE rental_id = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced payments: %w", err)
	}
	defer rows.Close()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE payments SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark payment synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ClaimBalanceApply(ctx context.Context, id string) (bool, error) {
	// Test-and-set, not read-then-write: the UPDATE itself is the guard.
	query := `UPDATE payments SET balance_synced = 1 WHERE id = ? AND balance_synced = 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim payment balance apply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*models.Payment, error) {
	p := &models.Payment{}
	var method, status string
	var applied, dirty int
	err := row.Scan(&p.ID, &p.RentalID, &p.PayerEmail, &p.OwnerAmount, &p.DriverAmount,
		&p.PlatformFee, &method, &status, &applied, &p.CreatedAt, &dirty, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Method = models.PaymentMethod(method)
	p.Status = models.PaymentStatus(status)
	p.BalanceSynced = applied != 0
	p.Dirty = dirty != 0
	return p, nil
}
