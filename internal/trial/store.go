package trial

import (
	"context"
	"time"
)

// Store persists trials. Implementations are pure I/O; eligibility rules live
// in the Service. Methods that guard invariants do so atomically:
//
//   - Create rejects a second active trial for the same vehicle with
//     sentinel.ErrConflict.
//   - Finalize sets FinishedAt exactly once, returning sentinel.ErrInvalidState
//     when the trial is already finalized.
//   - MarkIncident flips HasIncident on the vehicle's active trial and reports
//     whether the flag actually changed.
type Store interface {
	Create(ctx context.Context, t *Trial) error
	Get(ctx context.Context, id int64) (*Trial, error)
	Finalize(ctx context.Context, id int64, finishedAt time.Time, comment string) (*Trial, error)
	Delete(ctx context.Context, id int64) error

	ActiveByVehicle(ctx context.Context, vehicleID int64) (*Trial, error)
	MarkIncident(ctx context.Context, vehicleID int64) (bool, error)

	ListActive(ctx context.Context) ([]Trial, error)
	ListIncidents(ctx context.Context) ([]Trial, error)
	ListFinishedByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]Trial, error)
}
