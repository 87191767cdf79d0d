package trial

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"testdrive/pkg/platform/sentinel"
)

// uniqueViolation is the postgres error code raised by the partial unique
// index trials_one_active_per_vehicle on concurrent Create calls.
const uniqueViolation = "23505"

// PostgresStore persists trials in PostgreSQL. The one-active-trial-per-
// vehicle invariant is enforced by a partial unique index on (vehicle_id)
// WHERE finished_at IS NULL, so two near-simultaneous creates cannot both
// succeed regardless of isolation level.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed trial store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, t *Trial) error {
	query := `
		INSERT INTO trials (vehicle_id, buyer_id, employee_id, started_at, has_incident)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, t.VehicleID, t.BuyerID, t.EmployeeID, t.StartedAt).Scan(&t.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("active trial for vehicle %d: %w", t.VehicleID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create trial: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id int64) (*Trial, error) {
	query := selectTrial + ` WHERE id = $1`
	t, err := scanTrial(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("trial %d: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get trial: %w", err)
	}
	return t, nil
}

// Finalize sets finished_at exactly once. The WHERE finished_at IS NULL guard
// makes a double finalize lose atomically instead of overwriting.
func (s *PostgresStore) Finalize(ctx context.Context, id int64, finishedAt time.Time, comment string) (*Trial, error) {
	query := `
		UPDATE trials
		SET finished_at = $2, comments = $3
		WHERE id = $1 AND finished_at IS NULL
		RETURNING id, vehicle_id, buyer_id, employee_id, started_at, finished_at, comments, has_incident
	`
	t, err := scanTrial(s.db.QueryRowContext(ctx, query, id, finishedAt, comment))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("finalize trial: %w", err)
	}

	// Distinguish "missing" from "already finalized".
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("trial %d: %w", id, sentinel.ErrInvalidState)
}

func (s *PostgresStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trials WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trial: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trial: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("trial %d: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ActiveByVehicle(ctx context.Context, vehicleID int64) (*Trial, error) {
	query := selectTrial + ` WHERE vehicle_id = $1 AND finished_at IS NULL`
	t, err := scanTrial(s.db.QueryRowContext(ctx, query, vehicleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("active trial for vehicle %d: %w", vehicleID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get active trial: %w", err)
	}
	return t, nil
}

// MarkIncident flips has_incident on the vehicle's active trial. The
// conditional UPDATE keeps repeated violations idempotent on the flag.
func (s *PostgresStore) MarkIncident(ctx context.Context, vehicleID int64) (bool, error) {
	query := `
		UPDATE trials
		SET has_incident = TRUE
		WHERE vehicle_id = $1 AND finished_at IS NULL AND has_incident = FALSE
	`
	res, err := s.db.ExecContext(ctx, query, vehicleID)
	if err != nil {
		return false, fmt.Errorf("mark incident: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark incident: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]Trial, error) {
	query := selectTrial + ` WHERE finished_at IS NULL ORDER BY id`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListIncidents(ctx context.Context) ([]Trial, error) {
	query := selectTrial + ` WHERE has_incident ORDER BY id`
	return s.list(ctx, query)
}

func (s *PostgresStore) ListFinishedByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]Trial, error) {
	query := selectTrial + `
		WHERE vehicle_id = $1
		  AND finished_at IS NOT NULL
		  AND started_at <= $3
		  AND finished_at >= $2
		ORDER BY started_at
	`
	return s.list(ctx, query, vehicleID, from, to)
}

const selectTrial = `
	SELECT id, vehicle_id, buyer_id, employee_id, started_at, finished_at, comments, has_incident
	FROM trials`

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list trials: %w", err)
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrial(row rowScanner) (*Trial, error) {
	var t Trial
	var finishedAt sql.NullTime
	var comments sql.NullString
	err := row.Scan(&t.ID, &t.VehicleID, &t.BuyerID, &t.EmployeeID, &t.StartedAt, &finishedAt, &comments, &t.HasIncident)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		t.FinishedAt = &finishedAt.Time
	}
	t.Comments = comments.String
	return &t, nil
}
