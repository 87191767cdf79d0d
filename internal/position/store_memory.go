package position

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps positions in a slice per vehicle.
type MemoryStore struct {
	mu        sync.Mutex
	nextID    int64
	byVehicle map[int64][]Position
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byVehicle: make(map[int64][]Position)}
}

func (s *MemoryStore) Insert(_ context.Context, p *Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	p.ID = s.nextID
	s.byVehicle[p.VehicleID] = append(s.byVehicle[p.VehicleID], *p)
	return nil
}

func (s *MemoryStore) ListByVehicleBetween(_ context.Context, vehicleID int64, from, to time.Time) ([]Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Position
	for _, p := range s.byVehicle[vehicleID] {
		if p.RecordedAt.Before(from) || p.RecordedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.Before(out[j].RecordedAt) })
	return out, nil
}

// Count reports the number of stored positions for a vehicle; test helper.
func (s *MemoryStore) Count(vehicleID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byVehicle[vehicleID])
}
