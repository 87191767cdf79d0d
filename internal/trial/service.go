package trial

import (
	"context"
	"errors"
	"fmt"
	"time"

	"testdrive/internal/platform/metrics"
	"testdrive/internal/refdata"
	dErrors "testdrive/pkg/domain-errors"
	"testdrive/pkg/platform/sentinel"
)

// Service owns the trial lifecycle. Eligibility checks run in a fixed order,
// cheapest and most specific first, and the first failure is the one the
// caller sees.
type Service struct {
	store     Store
	directory refdata.Directory
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithMetrics records trial lifecycle counters.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService builds the lifecycle service.
func NewService(store Store, directory refdata.Directory, opts ...ServiceOption) *Service {
	s := &Service{
		store:     store,
		directory: directory,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates eligibility and starts a trial. Check order: vehicle
// exists, vehicle not already on a trial, buyer exists, license not expired,
// buyer not restricted, employee exists. The store's uniqueness guarantee
// backs the already-on-a-trial check against concurrent creates.
func (s *Service) Create(ctx context.Context, vehicleID, buyerID, employeeID int64) (*Trial, error) {
	if _, err := s.directory.Vehicle(ctx, vehicleID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found")
		}
		return nil, fmt.Errorf("lookup vehicle: %w", err)
	}

	if _, err := s.store.ActiveByVehicle(ctx, vehicleID); err == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "vehicle is being tested")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("check active trial: %w", err)
	}

	buyer, err := s.directory.Buyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "buyer not found")
		}
		return nil, fmt.Errorf("lookup buyer: %w", err)
	}
	if buyer.LicenseExpiry.Before(s.now()) {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer's license has expired")
	}
	if buyer.Restricted {
		return nil, dErrors.New(dErrors.CodeValidation, "buyer is restricted from testing vehicles")
	}

	if _, err := s.directory.Employee(ctx, employeeID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		return nil, fmt.Errorf("lookup employee: %w", err)
	}

	t := &Trial{
		VehicleID:  vehicleID,
		BuyerID:    buyerID,
		EmployeeID: employeeID,
		StartedAt:  s.now(),
	}
	if err := s.store.Create(ctx, t); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			// Lost the race with a concurrent create for the same vehicle.
			return nil, dErrors.New(dErrors.CodeValidation, "vehicle is being tested")
		}
		return nil, fmt.Errorf("create trial: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TrialsCreated.Inc()
	}
	return t, nil
}

// Finalize closes a trial exactly once, storing the employee's comment.
func (s *Service) Finalize(ctx context.Context, id int64, comment string) (*Trial, error) {
	t, err := s.store.Finalize(ctx, id, s.now(), comment)
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "trial not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeValidation, "trial already finalized")
		}
		return nil, fmt.Errorf("finalize trial: %w", err)
	}

	if s.metrics != nil {
		s.metrics.TrialsFinalized.Inc()
	}
	return t, nil
}

// ListActive returns all trials still running.
func (s *Service) ListActive(ctx context.Context) ([]Trial, error) {
	return s.store.ListActive(ctx)
}

// ListIncidents returns all trials flagged with an incident.
func (s *Service) ListIncidents(ctx context.Context) ([]Trial, error) {
	return s.store.ListIncidents(ctx)
}

// Delete removes a trial (administrative use).
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "trial not found")
		}
		return fmt.Errorf("delete trial: %w", err)
	}
	return nil
}

// ActiveByVehicle returns the running trial for a vehicle, if any.
func (s *Service) ActiveByVehicle(ctx context.Context, vehicleID int64) (*Trial, error) {
	t, err := s.store.ActiveByVehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeValidation, "vehicle is not currently on a trial")
		}
		return nil, fmt.Errorf("get active trial: %w", err)
	}
	return t, nil
}

// MarkIncident flags the vehicle's active trial. Repeated violations are
// no-ops on the flag; the caller still dispatches an alert either way.
func (s *Service) MarkIncident(ctx context.Context, vehicleID int64) (bool, error) {
	return s.store.MarkIncident(ctx, vehicleID)
}
