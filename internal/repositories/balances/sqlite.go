package balances

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/dbx"
	"github.com/dmitrijs2005/movesync/internal/models"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByOwner(ctx context.Context, ownerEmail string) (*models.Balance, error) {
	query := `SELECT owner_email, amount, created_at, dirty, updated_at FROM balances WHERE owner_email = ?`
	b := &models.Balance{}
	var dirty int
	err := r.db.QueryRowContext(ctx, query, ownerEmail).
		Scan(&b.OwnerEmail, &b.Amount, &b.CreatedAt, &dirty, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	b.Dirty = dirty != 0
	return b, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, b *models.Balance) error {
	query := `INSERT INTO balances (owner_email, amount, created_at, dirty, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_email) DO UPDATE SET amount = excluded.amount,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty := 0
	if b.Dirty {
		dirty = 1
	}
	_, err := r.db.ExecContext(ctx, query, b.OwnerEmail, b.Amount, b.CreatedAt, dirty, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ReplaceFromRemote(ctx context.Context, ownerEmail string, amount, createdAt, updatedAt int64) error {
	query := `INSERT INTO balances (owner_email, amount, created_at, dirty, updated_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(owner_email) DO UPDATE SET amount = excluded.amount,
			dirty = 0,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query, ownerEmail, amount, createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to replace balance from remote: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.Balance, error) {
	query := `SELECT owner_email, amount, created_at, dirty, updated_at
		FROM balances WHERE owner_email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced balances: %w", err)
	}
	defer rows.Close()

	var result []*models.Balance
	for rows.Next() {
		b := &models.Balance{}
		var dirty int
		if err := rows.Scan(&b.OwnerEmail, &b.Amount, &b.CreatedAt, &dirty, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Dirty = dirty != 0
		result = append(result, b)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, ownerEmail string, seenUpdatedAt int64) error {
	query := `UPDATE balances SET dirty = 0 WHERE owner_email = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, ownerEmail, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark balance synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) AdjustAmount(ctx context.Context, ownerEmail string, delta, now int64) (int64, int64, error) {
	// Ensure the row exists so first income for a fresh wallet works.
	ensure := `INSERT INTO balances (owner_email, amount, created_at, dirty, updated_at)
		VALUES (?, 0, ?, 1, ?)
		ON CONFLICT(owner_email) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, ensure, ownerEmail, now, now); err != nil {
		return 0, 0, fmt.Errorf("failed to ensure balance row: %w", err)
	}

	var before int64
	err := r.db.QueryRowContext(ctx, `SELECT amount FROM balances WHERE owner_email = ?`, ownerEmail).Scan(&before)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read balance amount: %w", err)
	}

	after := before + delta
	query := `UPDATE balances SET amount = ?, dirty = 1, updated_at = ? WHERE owner_email = ?`
	if _, err := r.db.ExecContext(ctx, query, after, now, ownerEmail); err != nil {
		return 0, 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return before, after, nil
}

// SQLiteTxnRepository implements TxnRepository for the balance_transactions table.
type SQLiteTxnRepository struct {
	db dbx.DBTX
}

// NewSQLiteTxnRepository returns a new SQLiteTxnRepository bound to the given DBTX.
func NewSQLiteTxnRepository(db dbx.DBTX) *SQLiteTxnRepository {
	return &SQLiteTxnRepository{db: db}
}

func (r *SQLiteTxnRepository) GetByID(ctx context.Context, id string) (*models.BalanceTransaction, error) {
	query := `SELECT id, owner_email, counterparty_email, direction, source, amount,
		balance_before, balance_after, created_at, dirty, updated_at
		FROM balance_transactions WHERE id = ?`
	t, err := scanTxn(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteTxnRepository) Insert(ctx context.Context, t *models.BalanceTransaction) error {
	// Append-only: no ON CONFLICT clause. A duplicate id is a caller bug.
	query := `INSERT INTO balance_transactions (id, owner_email, counterparty_email, direction,
		source, amount, balance_before, balance_after, created_at, dirty, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	dirty := 0
	if t.Dirty {
		dirty = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		t.ID, t.OwnerEmail, t.CounterpartyEmail, string(t.Direction), string(t.Source),
		t.Amount, t.BalanceBefore, t.BalanceAfter, t.CreatedAt, dirty, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert balance transaction: %w", err)
	}
	return nil
}

func (r *SQLiteTxnRepository) GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.BalanceTransaction, error) {
	query := `SELECT id, owner_email, counterparty_email, direction, source, amount,
		balance_before, balance_after, created_at, dirty, updated_at
		FROM balance_transactions WHERE owner_email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced transactions: %w", err)
	}
	defer rows.Close()

	var result []*models.BalanceTransaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (r *SQLiteTxnRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE balance_transactions SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark transaction synced: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTxn(row rowScanner) (*models.BalanceTransaction, error) {
	t := &models.BalanceTransaction{}
	var direction, source string
	var dirty int
	err := row.Scan(&t.ID, &t.OwnerEmail, &t.CounterpartyEmail, &direction, &source,
		&t.Amount, &t.BalanceBefore, &t.BalanceAfter, &t.CreatedAt, &dirty, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Direction = models.TxnDirection(direction)
	t.Source = models.TxnSource(source)
	t.Dirty = dirty != 0
	return t, nil
}
