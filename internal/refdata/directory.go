package refdata

import "context"

// Directory exposes the lookup queries the core needs from reference data.
// Implementations return sentinel.ErrNotFound for absent entities.
type Directory interface {
	Vehicle(ctx context.Context, id int64) (*Vehicle, error)
	VehicleByPlate(ctx context.Context, plate string) (*Vehicle, error)
	Buyer(ctx context.Context, id int64) (*Buyer, error)
	Employee(ctx context.Context, id int64) (*Employee, error)
}
