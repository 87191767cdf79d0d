package trial

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"testdrive/pkg/platform/sentinel"
)

// MemoryStore keeps trials in a map. The mutex spans check-and-insert in
// Create, which is what closes the duplicate-active-trial race the postgres
// store closes with its partial unique index.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	trials map[int64]Trial
}

// NewMemoryStore builds an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trials: make(map[int64]Trial)}
}

func (s *MemoryStore) Create(_ context.Context, t *Trial) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.trials {
		if existing.VehicleID == t.VehicleID && existing.FinishedAt == nil {
			return fmt.Errorf("active trial for vehicle %d: %w", t.VehicleID, sentinel.ErrConflict)
		}
	}

	s.nextID++
	t.ID = s.nextID
	s.trials[t.ID] = *t
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id int64) (*Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trials[id]
	if !ok {
		return nil, fmt.Errorf("trial %d: %w", id, sentinel.ErrNotFound)
	}
	return &t, nil
}

func (s *MemoryStore) Finalize(_ context.Context, id int64, finishedAt time.Time, comment string) (*Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.trials[id]
	if !ok {
		return nil, fmt.Errorf("trial %d: %w", id, sentinel.ErrNotFound)
	}
	if t.FinishedAt != nil {
		return nil, fmt.Errorf("trial %d: %w", id, sentinel.ErrInvalidState)
	}

	t.FinishedAt = &finishedAt
	t.Comments = comment
	s.trials[id] = t
	return &t, nil
}

func (s *MemoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trials[id]; !ok {
		return fmt.Errorf("trial %d: %w", id, sentinel.ErrNotFound)
	}
	delete(s.trials, id)
	return nil
}

func (s *MemoryStore) ActiveByVehicle(_ context.Context, vehicleID int64) (*Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.trials {
		if t.VehicleID == vehicleID && t.FinishedAt == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("active trial for vehicle %d: %w", vehicleID, sentinel.ErrNotFound)
}

func (s *MemoryStore) MarkIncident(_ context.Context, vehicleID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.trials {
		if t.VehicleID == vehicleID && t.FinishedAt == nil {
			if t.HasIncident {
				return false, nil
			}
			t.HasIncident = true
			s.trials[id] = t
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ListActive(_ context.Context) ([]Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Trial
	for _, t := range s.trials {
		if t.FinishedAt == nil {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) ListIncidents(_ context.Context) ([]Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Trial
	for _, t := range s.trials {
		if t.HasIncident {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) ListFinishedByVehicleBetween(_ context.Context, vehicleID int64, from, to time.Time) ([]Trial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Trial
	for _, t := range s.trials {
		if t.VehicleID != vehicleID || t.FinishedAt == nil {
			continue
		}
		// Overlap with [from, to]: started before the window closed and
		// finished after it opened.
		if !t.StartedAt.After(to) && !t.FinishedAt.Before(from) {
			out = append(out, t)
		}
	}
	sortByID(out)
	return out, nil
}

func sortByID(trials []Trial) {
	sort.Slice(trials, func(i, j int) bool { return trials[i].ID < trials[j].ID })
}
