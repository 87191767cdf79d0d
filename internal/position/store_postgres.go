package position

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists positions in PostgreSQL. The schema carries an index
// on (vehicle_id, recorded_at) so range reads for the distance aggregation
// stay ordered and cheap.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed position store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, p *Position) error {
	query := `
		INSERT INTO positions (vehicle_id, recorded_at, latitude, longitude)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, p.VehicleID, p.RecordedAt, p.Latitude, p.Longitude).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]Position, error) {
	query := `
		SELECT id, vehicle_id, recorded_at, latitude, longitude
		FROM positions
		WHERE vehicle_id = $1 AND recorded_at BETWEEN $2 AND $3
		ORDER BY recorded_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, vehicleID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var p Position
		if err := rows.Scan(&p.ID, &p.VehicleID, &p.RecordedAt, &p.Latitude, &p.Longitude); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
