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

const personalColumns = `id, owner_email, make, model, plate, daily_rate, available,
	created_at, dirty, updated_at`

// SQLitePersonalRepository implements PersonalRepository for the personal_vehicles table.
type SQLitePersonalRepository struct {
	db dbx.DBTX
}

// NewSQLitePersonalRepository returns a new SQLitePersonalRepository bound to the given DBTX.
func NewSQLitePersonalRepository(db dbx.DBTX) *SQLitePersonalRepository {
	return &SQLitePersonalRepository{db: db}
}

func (r *SQLitePersonalRepository) GetByID(ctx context.Context, id string) (*models.PersonalVehicle, error) {
	query := `SELECT ` + personalColumns + ` FROM personal_vehicles WHERE id = ?`
	v, err := scanPersonal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get personal vehicle: %w", err)
	}
	return v, nil
}

func (r *SQLitePersonalRepository) Save(ctx context.Context, v *models.PersonalVehicle) error {
	query := `INSERT INTO personal_vehicles (` + personalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET owner_email = excluded.owner_email,
			make = excluded.make,
			model = excluded.model,
			plate = excluded.plate,
			daily_rate = excluded.daily_rate,
			available = excluded.available,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty, available := 0, 0
	if v.Dirty {
		dirty = 1
	}
	if v.Available {
		available = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		v.ID, v.OwnerEmail, v.Make, v.Model, v.Plate, v.DailyRate, available,
		v.CreatedAt, dirty, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert personal vehicle: %w", err)
	}
	return nil
}

func (r *SQLitePersonalRepository) GetUnsynced(ctx context.Context, ownerEmail string) ([]*models.PersonalVehicle, error) {
	query := `SELECT ` + personalColumns + ` FROM personal_vehicles WHERE owner_email = ? AND dirty = 1`
	rows, err := r.db.QueryContext(ctx, query, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to select unsynced personal vehicles: %w", err)
	}
	defer rows.Close()

	var result []*models.PersonalVehicle
	for rows.Next() {
		v, err := scanPersonal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

func (r *SQLitePersonalRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE personal_vehicles SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark personal vehicle synced: %w", err)
	}
	return nil
}

func scanPersonal(row rowScanner) (*models.PersonalVehicle, error) {
	v := &models.PersonalVehicle{}
	var dirty, available int
	err := row.Scan(&v.ID, &v.OwnerEmail, &v.Make, &v.Model, &v.Plate, &v.DailyRate, &available,
		&v.CreatedAt, &dirty, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.Available = available != 0
	v.Dirty = dirty != 0
	return v, nil
}
