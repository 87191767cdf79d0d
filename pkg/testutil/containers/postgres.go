//go:build integration

// Package containers starts throwaway backing services for integration tests.
package containers

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresContainer wraps a testcontainers Postgres instance with the
// testdrive schema applied.
type PostgresContainer struct {
	Container *tcpostgres.PostgresContainer
	URL       string
	DB        *sql.DB
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
		id       BIGSERIAL PRIMARY KEY,
		plate    TEXT      NOT NULL UNIQUE,
		model_id BIGINT    NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS buyers (
		id             BIGSERIAL   PRIMARY KEY,
		full_name      TEXT        NOT NULL,
		restricted     BOOLEAN     NOT NULL DEFAULT FALSE,
		license_expiry TIMESTAMPTZ NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS employees (
		id        BIGSERIAL PRIMARY KEY,
		full_name TEXT      NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS trials (
		id           BIGSERIAL   PRIMARY KEY,
		vehicle_id   BIGINT      NOT NULL,
		buyer_id     BIGINT      NOT NULL,
		employee_id  BIGINT      NOT NULL,
		started_at   TIMESTAMPTZ NOT NULL,
		finished_at  TIMESTAMPTZ,
		comments     TEXT,
		has_incident BOOLEAN     NOT NULL DEFAULT FALSE
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS trials_one_active_per_vehicle
		ON trials (vehicle_id) WHERE finished_at IS NULL;`,
	`CREATE TABLE IF NOT EXISTS positions (
		id          BIGSERIAL        PRIMARY KEY,
		vehicle_id  BIGINT           NOT NULL,
		recorded_at TIMESTAMPTZ      NOT NULL,
		latitude    DOUBLE PRECISION NOT NULL,
		longitude   DOUBLE PRECISION NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_positions_vehicle_time
		ON positions (vehicle_id, recorded_at);`,
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("testdrive"),
		tcpostgres.WithUsername("testdrive"),
		tcpostgres.WithPassword("testdrive"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open postgres connection: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		t.Fatalf("failed to ping postgres: %v", err)
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("failed to apply schema: %v", err)
		}
	}

	return &PostgresContainer{Container: container, URL: url, DB: db}
}

// Truncate empties the mutable tables between tests.
func (p *PostgresContainer) Truncate(ctx context.Context) error {
	_, err := p.DB.ExecContext(ctx, `TRUNCATE trials, positions RESTART IDENTITY`)
	return err
}

// SeedVehicle inserts a vehicle row and returns its id.
func (p *PostgresContainer) SeedVehicle(ctx context.Context, plate string, modelID int64) (int64, error) {
	var id int64
	err := p.DB.QueryRowContext(ctx,
		`INSERT INTO vehicles (plate, model_id) VALUES ($1, $2)
		 ON CONFLICT (plate) DO UPDATE SET model_id = EXCLUDED.model_id
		 RETURNING id`,
		plate, modelID,
	).Scan(&id)
	return id, err
}

// SeedBuyer inserts a buyer row and returns its id.
func (p *PostgresContainer) SeedBuyer(ctx context.Context, name string, restricted bool, licenseExpiry time.Time) (int64, error) {
	var id int64
	err := p.DB.QueryRowContext(ctx,
		`INSERT INTO buyers (full_name, restricted, license_expiry)
		 VALUES ($1, $2, $3) RETURNING id`,
		name, restricted, licenseExpiry,
	).Scan(&id)
	return id, err
}

// SeedEmployee inserts an employee row and returns its id.
func (p *PostgresContainer) SeedEmployee(ctx context.Context, name string) (int64, error) {
	var id int64
	err := p.DB.QueryRowContext(ctx,
		`INSERT INTO employees (full_name) VALUES ($1) RETURNING id`,
		name,
	).Scan(&id)
	return id, err
}
