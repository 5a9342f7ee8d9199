package drivers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*models.DriverProfile, error) {
	query := `SELECT email, certifications, online, created_at, dirty, updated_at
		FROM driver_profiles WHERE email = ?`
	p, err := scanProfile(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, p *models.DriverProfile) error {
	query := `INSERT INTO driver_profiles (email, certifications, online, created_at, dirty, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET certifications = excluded.certifications,
			online = excluded.online,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty, online := 0, 0
	if p.Dirty {
		dirty = 1
	}
	if p.Online {
		online = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		p.Email, strings.Join(p.Certifications, ","), online, p.CreatedAt, dirty, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert driver profile: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, email string) ([]*models.DriverProfile, error) {
	query := `SELECT email, certifications, online, created_at, dirty, updated_at
		FROM driver_profiles WHERE email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced driver profiles: %w", err)
	}
	defer rows.Close()

	var result []*models.DriverProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, email string, seenUpdatedAt int64) error {
	query := `UPDATE driver_profiles SET dirty = 0 WHERE email = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, email, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark driver profile synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SetOnline(ctx context.Context, email string, online bool, now int64) error {
	onlineInt := 0
	if online {
		onlineInt = 1
	}
	query := `UPDATE driver_profiles SET online = ?, dirty = 1, updated_at = ? WHERE email = ?`
	if _, err := r.db.ExecContext(ctx, query, onlineInt, now, email); err != nil {
		return fmt.Errorf("failed to set driver online flag: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.DriverProfile, error) {
	p := &models.DriverProfile{}
	var certs string
	var dirty, online int
	err := row.Scan(&p.Email, &certs, &online, &p.CreatedAt, &dirty, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if certs != "" {
		p.Certifications = strings.Split(certs, ",")
	}
	p.Online = online != 0
	p.Dirty = dirty != 0
	return p, nil
}
