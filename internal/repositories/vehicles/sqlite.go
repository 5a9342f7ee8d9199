package vehicles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/movesync/internal/common"
	"github.com/dmitrijs2005/movesync/internal/dbx"
	"github.com/dmitrijs2005/movesync/internal/models"
)

const vehicleColumns = `id, owner_email, make, model, plate, daily_rate, status,
	created_at, dirty, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?`
	v, err := scanVehicle(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return v, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, v *models.Vehicle) error {
	query := `INSERT INTO vehicles (` + vehicleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_email = excluded.owner_email,
			make = excluded.make,
			model = excluded.model,
			plate = excluded.plate,
			daily_rate = excluded.daily_rate,
			status = excluded.status,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty := 0
	if v.Dirty {
		dirty = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.OwnerEmail, v.Make, v.Model, v.Plate, v.DailyRate, string(v.Status),
		v.CreatedAt, dirty, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert vehicle: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByOwner(ctx context.Context, ownerEmail string) ([]*models.Vehicle, error) {
	return r.selectVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE owner_email = ?`, ownerEmail)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.Vehicle, error) {
	return r.selectVehicles(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE owner_email = ? AND dirty = 1`, ownerEmail)
}

func (r *SQLiteRepository) selectVehicles(ctx context.Context, query string, args ...any) ([]*models.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select vehicles: %w", err)
	}
	defer rows.Close()

	var result []*models.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE vehicles SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark vehicle synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id string, status models.VehicleStatus, now int64, dirty bool) error {
	dirtyInt := 0
	if dirty {
		dirtyInt = 1
	}
	query := `UPDATE vehicles SET status = ?, dirty = ?, updated_at = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, string(status), dirtyInt, now, id); err != nil {
		return fmt.Errorf("failed to update vehicle status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVehicle(row rowScanner) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	var status string
	var dirty int
	err := row.Scan(&v.ID, &v.OwnerEmail, &v.Make, &v.Model, &v.Plate, &v.DailyRate, &status,
		&v.CreatedAt, &dirty, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Status = models.VehicleStatus(status)
	v.Dirty = dirty != 0
	return v, nil
}
