package accounts

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

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT email, role, display_name, phone, credential_hash, created_at, dirty, updated_at
		FROM accounts WHERE email = ?`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, a *models.Account) error {
	query := `INSERT INTO accounts (email, role, display_name, phone, credential_hash, created_at, dirty, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET role = excluded.role,
			display_name = excluded.display_name,
			phone = excluded.phone,
			credential_hash = excluded.credential_hash,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, query,
		a.Email, string(a.Role), a.DisplayName, a.Phone, a.CredentialHash,
		a.CreatedAt, boolToInt(a.Dirty), a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert account: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT email, role, display_name, phone, credential_hash, created_at, dirty, updated_at
		FROM accounts WHERE dirty = 1`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced accounts: %w", err)
	}
	defer rows.Close()

	var result []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, email string, seenUpdatedAt int64) error {
	// Clears the flag only when no local edit landed during the push, so a
	// concurrently modified record stays queued.
	query := `UPDATE accounts SET dirty = 0 WHERE email = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, email, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark account synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkDirty(ctx context.Context, email string, now int64) error {
	query := `UPDATE accounts SET dirty = 1, updated_at = ? WHERE email = ?`
	if _, err := r.db.ExecContext(ctx, query, now, email); err != nil {
		return fmt.Errorf("failed to mark account dirty: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateDisplayName(ctx context.Context, email, name string, now int64, dirty bool) error {
	query := `UPDATE accounts SET display_name = ?, dirty = ?, updated_at = ? WHERE email = ?`
	if _, err := r.db.ExecContext(ctx, query, name, boolToInt(dirty), now, email); err != nil {
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteByEmail(ctx context.Context, email string) error {
	query := `DELETE FROM accounts WHERE email = ?`
	if _, err := r.db.ExecContext(ctx, query, email); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	a := &models.Account{}
	var role string
	var dirty int
	err := row.Scan(&a.Email, &role, &a.DisplayName, &a.Phone, &a.CredentialHash,
		&a.CreatedAt, &dirty, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Role = models.Role(role)
	a.Dirty = dirty != 0
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
