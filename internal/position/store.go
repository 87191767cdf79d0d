package position

import (
	"context"
	"time"
)

// Store persists positions. Positions are append-only; nothing updates or
// deletes them.
type Store interface {
	Insert(ctx context.Context, p *Position) error
	// ListByVehicleBetween returns positions in the closed interval
	// [from, to], ordered ascending by RecordedAt.
	ListByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]Position, error)
}

// LatestStore keeps the most recent position per vehicle for live views.
// Writes are best-effort; losing one never fails position processing.
type LatestStore interface {
	SetLatest(ctx context.Context, p *Position) error
	Latest(ctx context.Context, vehicleID int64) (*Position, error)
}
