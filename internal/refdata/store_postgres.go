package refdata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"testdrive/pkg/platform/sentinel"
)

// PostgresDirectory reads reference data from PostgreSQL. It is pure I/O;
// eligibility rules live in the trial service.
type PostgresDirectory struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed directory.
func NewPostgres(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Vehicle(ctx context.Context, id int64) (*Vehicle, error) {
	query := `
		SELECT id, plate, model_id
		FROM vehicles
		WHERE id = $1
	`
	var v Vehicle
	err := d.db.QueryRowContext(ctx, query, id).Scan(&v.ID, &v.Plate, &v.ModelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vehicle %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &v, nil
}

func (d *PostgresDirectory) VehicleByPlate(ctx context.Context, plate string) (*Vehicle, error) {
	query := `
		SELECT id, plate, model_id
		FROM vehicles
		WHERE plate = $1
	`
	var v Vehicle
	err := d.db.QueryRowContext(ctx, query, plate).Scan(&v.ID, &v.Plate, &v.ModelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("vehicle with plate %q: %w", plate, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get vehicle by plate: %w", err)
	}
	return &v, nil
}

func (d *PostgresDirectory) Buyer(ctx context.Context, id int64) (*Buyer, error) {
	query := `
		SELECT id, full_name, restricted, license_expiry
		FROM buyers
		WHERE id = $1
	`
	var b Buyer
	err := d.db.QueryRowContext(ctx, query, id).Scan(&b.ID, &b.FullName, &b.Restricted, &b.LicenseExpiry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("buyer %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get buyer: %w", err)
	}
	return &b, nil
}

func (d *PostgresDirectory) Employee(ctx context.Context, id int64) (*Employee, error) {
	query := `
		SELECT id, full_name
		FROM employees
		WHERE id = $1
	`
	var e Employee
	err := d.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.FullName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("employee %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get employee: %w", err)
	}
	return &e, nil
}
