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

const rentalColumns = `id, vehicle_id, renter_email, owner_email, driver_email, status,
	start_at, end_at, assigned_at, delivered_at, returned_early_at, price_total,
	created_at, dirty, updated_at`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE id = ?`
	rr, err := scanRental(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rental: %w", err)
	}
	return rr, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, rr *models.Rental) error {
	query := `INSERT INTO rentals (` + rentalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET vehicle_id = excluded.vehicle_id,
			renter_email = excluded.renter_email,
			owner_email = excluded.owner_email,
			driver_email = excluded.driver_email,
			status = excluded.status,
			start_at = excluded.start_at,
			end_at = excluded.end_at,
			assigned_at = excluded.assigned_at,
			delivered_at = excluded.delivered_at,
			returned_early_at = excluded.returned_early_at,
			price_total = excluded.price_total,
			created_at = excluded.created_at,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`
	dirty := 0
	if rr.Dirty {
		dirty = 1
	}
	_, err := r.db.ExecContext(ctx, query,
		rr.ID, rr.VehicleID, rr.RenterEmail, rr.OwnerEmail, rr.DriverEmail, string(rr.Status),
		rr.StartAt, rr.EndAt, rr.AssignedAt, rr.DeliveredAt, rr.ReturnedEarlyAt, rr.PriceTotal,
		rr.CreatedAt, dirty, rr.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert rental: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetForScope(ctx context.Context, renterEmail string) ([]*models.Rental, error) {
	return r.selectRentals(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE renter_email = ?`, renterEmail)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context, renterEmail string) ([]*models.Rental, error) {
	return r.selectRentals(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE renter_email = ? AND dirty = 1`, renterEmail)
}

func (r *SQLiteRepository) selectRentals(ctx context.Context, query string, args ...any) ([]*models.Rental, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select rentals: %w", err)
	}
	defer rows.Close()

	var result []*models.Rental
	for rows.Next() {
		rr, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rr)
	}
	return result, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, seenUpdatedAt int64) error {
	query := `UPDATE rentals SET dirty = 0 WHERE id = ? AND dirty = 1 AND updated_at <= ?`
	if _, err := r.db.ExecContext(ctx, query, id, seenUpdatedAt); err != nil {
		return fmt.Errorf("failed to mark rental synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ActiveCountForVehicle(ctx context.Context, vehicleID string) (int, error) {
	query := `SELECT COUNT(*) FROM rentals WHERE vehicle_id = ? AND status IN (?, ?, ?)`
	var n int
	err := r.db.QueryRowContext(ctx, query, vehicleID,
		string(models.RentalConfirmed), string(models.RentalDelivered), string(models.RentalActive)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count active rentals: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRental(row rowScanner) (*models.Rental, error) {
	rr := &models.Rental{}
	var status string
	var dirty int
	err := row.Scan(&rr.ID, &rr.VehicleID, &rr.RenterEmail, &rr.OwnerEmail, &rr.DriverEmail, &status,
		&rr.StartAt, &rr.EndAt, &rr.AssignedAt, &rr.DeliveredAt, &rr.ReturnedEarlyAt, &rr.PriceTotal,
		&rr.CreatedAt, &dirty, &rr.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rr.Status = models.RentalStatus(status)
	rr.Dirty = dirty != 0
	return rr, nil
}
