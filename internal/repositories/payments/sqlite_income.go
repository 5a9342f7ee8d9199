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

const incomeColumns = `id, rental_id, recipient_email, amount, source, balance_synced,
	created_at, dirty, updated_at`

// SQLiteIncomeRepository implements IncomeRepository for the income_records table.
type SQLiteIncomeRepository struct {
	db dbx.DBTX
}

// NewSQLiteIncomeRepository returns a new SQLiteIncomeRepository bound to the given DBTX.
func NewSQLiteIncomeRepository(db dbx.DBTX) *SQLiteIncomeRepository {
	return &SQLiteIncomeRepository{db: db}
}

func (r *SQLiteIncomeRepository) GetByID(ctx context.Context, id string) (*models.IncomeRecord, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_records WHERE id = ?`
	rec, err := scanIncome(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get income record: %w", err)
	}
	return rec, nil
}

func (r *SQLiteIncomeRepository) Save(ctx context.Context, rec *models.IncomeRecord) error {
	query := `INSERT INTO income_records (` + incomeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET rental_id = excluded.rental_id,
			recipient_email = excluded.recipient_email,
			amount = excluded.amount,
			source = excluded.source,
			balance_synced = MAX(income_records.balance_synced, excluded.balance_synced),
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty, applied := 0, 0
	if rec.Dirty {
		dirty = 1
	}
	if rec.BalanceSynced {
		applied = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.RentalID, rec.RecipientEmail, rec.Amount, string(rec.Source),
		applied, rec.CreatedAt, dirty, rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert income record: %w", err)
	}
	return nil
}

func (r *SQLiteIncomeRepository) GetUnsynced(ctx context.Context, recipientEmail string) ([]*models.IncomeRecord, error) {
	query := `SELECT ` + incomeColumns + ` FROM income_records WHERE recipient_email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, recipientEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced income records: %w", err)
	}
	defer rows.Close()

	var result []*models.IncomeRecord
	for rows.Next() {
		rec, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *SQLiteIncomeRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE income_records SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark income record synced: %w", err)
	}
	return nil
}

func (r *SQLiteIncomeRepository) ClaimBalanceApply(ctx context.Context, id string) (bool, error) {
	query := `UPDATE income_records SET balance_synced = 1 WHERE id = ? AND balance_synced = 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to claim income balance apply: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}

func scanIncome(row rowScanner) (*models.IncomeRecord, error) {
	rec := &models.IncomeRecord{}
	var source string
	var applied, dirty int
	err := row.Scan(&rec.ID, &rec.RentalID, &rec.RecipientEmail, &rec.Amount, &source,
		&applied, &rec.CreatedAt, &dirty, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.Source = models.TxnSource(source)
	rec.BalanceSynced = applied != 0
	rec.Dirty = dirty != 0
	return rec, nil
}
