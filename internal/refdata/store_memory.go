package refdata

import (
	"context"
	"fmt"
	"sync"

	"testdrive/pkg/platform/sentinel"
)

// MemoryDirectory holds reference data in maps. It doubles as the test fake
// and the backing directory when no database is configured.
type MemoryDirectory struct {
	mu        sync.RWMutex
	vehicles  map[int64]Vehicle
	buyers    map[int64]Buyer
	employees map[int64]Employee
}

// NewMemoryDirectory builds an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		vehicles:  make(map[int64]Vehicle),
		buyers:    make(map[int64]Buyer),
		employees: make(map[int64]Employee),
	}
}

// PutVehicle seeds or replaces a vehicle.
func (d *MemoryDirectory) PutVehicle(v Vehicle) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vehicles[v.ID] = v
}

// PutBuyer seeds or replaces a buyer.
func (d *MemoryDirectory) PutBuyer(b Buyer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buyers[b.ID] = b
}

// PutEmployee seeds or replaces an employee.
func (d *MemoryDirectory) PutEmployee(e Employee) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.employees[e.ID] = e
}

func (d *MemoryDirectory) Vehicle(_ context.Context, id int64) (*Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.vehicles[id]
	if !ok {
		return nil, fmt.Errorf("vehicle %d: %w", id, sentinel.ErrNotFound)
	}
	return &v, nil
}

func (d *MemoryDirectory) VehicleByPlate(_ context.Context, plate string) (*Vehicle, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.vehicles {
		if v.Plate == plate {
			return &v, nil
		}
	}
	return nil, fmt.Errorf("vehicle with plate %q: %w", plate, sentinel.ErrNotFound)
}

func (d *MemoryDirectory) Buyer(_ context.Context, id int64) (*Buyer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.buyers[id]
	if !ok {
		return nil, fmt.Errorf("buyer %d: %w", id, sentinel.ErrNotFound)
	}
	return &b, nil
}

func (d *MemoryDirectory) Employee(_ context.Context, id int64) (*Employee, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.employees[id]
	if !ok {
		return nil, fmt.Errorf("employee %d: %w", id, sentinel.ErrNotFound)
	}
	return &e, nil
}
