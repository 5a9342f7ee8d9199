package rentals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/dbx"
	"github.com/dmitrijs2005/movesync/internal/models"
)

const secondaryColumns = `id, renter_email, driver_email, status, start_at, end_at,
	assigned_at, completed_at, price_total, created_at, dirty, updated_at`

// SQLiteSecondaryRepository implements SecondaryRepository for driver-only hires.
type SQLiteSecondaryRepository struct {
	db dbx.DBTX
}

// NewSQLiteSecondaryRepository returns a new SQLiteSecondaryRepository bound to the given DBTX.
func NewSQLiteSecondaryRepository(db dbx.DBTX) *SQLiteSecondaryRepository {
	return &SQLiteSecondaryRepository{db: db}
}

func (r *SQLiteSecondaryRepository) GetByID(ctx context.Context, id string) (*models.SecondaryRental, error) {
	query := `SELECT ` + secondaryColumns + ` FROM driver_rentals WHERE id = ?`
	sr, err := scanSecondary(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get driver rental: %w", err)
	}
	return sr, nil
}

func (r *SQLiteSecondaryRepository) Save(ctx context.Context, sr *models.SecondaryRental) error {
	query := `INSERT INTO driver_rentals (` + secondaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET renter_email = excluded.renter_email,
			driver_email = excluded.driver_email,
			status = excluded.status,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			assigned_at = excluded.assigned_at,
			completed_at = excluded.completed_at,
			price_total = excluded.price_total,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty := 0
	if sr.Dirty {
		dirty = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		sr.ID, sr.RenterEmail, sr.DriverEmail, string(sr.Status), sr.StartAt, sr.EndAt,
		sr.AssignedAt, sr.CompletedAt, sr.PriceTotal, sr.CreatedAt, dirty, sr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert driver rental: %w", err)
	}
	return nil
}

func (r *SQLiteSecondaryRepository) GetUnsynced(ctx context.Context, renterEmail string) ([]*models.SecondaryRental, error) {
	query := `SELECT ` + secondaryColumns + ` FROM driver_rentals WHERE renter_email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, renterEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced driver rentals: %w", err)
	}
	defer rows.Close()

	var result []*models.SecondaryRental
	for rows.Next() {
		sr, err := scanSecondary(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sr)
	}
	return result, rows.Err()
}

func (r *SQLiteSecondaryRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE driver_rentals SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark driver rental synced: %w", err)
	}
	return nil
}

func scanSecondary(row rowScanner) (*models.SecondaryRental, error) {
	sr := &models.SecondaryRental{}
	var status string
	var dirty int
	err := row.Scan(&sr.ID, &sr.RenterEmail, &sr.DriverEmail, &status, &sr.StartAt, &sr.EndAt,
		&sr.AssignedAt, &sr.CompletedAt, &sr.PriceTotal, &sr.CreatedAt, &dirty, &sr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sr.Status = models.RentalStatus(status)
	sr.Dirty = dirty != 0
	return sr, nil
}
