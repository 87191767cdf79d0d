package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"testdrive/internal/alerts"
	"testdrive/internal/platform/metrics"
	"testdrive/internal/refdata"
	"testdrive/internal/restrictions"
	"testdrive/internal/trial"
	dErrors "testdrive/pkg/domain-errors"
	"testdrive/pkg/geo"
	"testdrive/pkg/platform/sentinel"
)

// Messages mirror the three outcomes the original agency API reported.
const (
	msgRecorded    = "position recorded"
	msgOutOfRadius = "vehicle is outside the radius allowed by the agency"
	msgDangerZone  = "vehicle is inside a restricted zone"
)

// TrialGuard is the slice of the trial service the evaluator needs.
type TrialGuard interface {
	ActiveByVehicle(ctx context.Context, vehicleID int64) (*trial.Trial, error)
	MarkIncident(ctx context.Context, vehicleID int64) (bool, error)
}

// RestrictionsProvider serves the current geofencing snapshot.
type RestrictionsProvider interface {
	Get(ctx context.Context) (*restrictions.Restrictions, error)
}

// Notifier hands a geofence alert to the dispatch pipeline.
type Notifier interface {
	Enqueue(alert alerts.Alert) bool
}

// Service validates, persists and geofence-checks incoming positions.
type Service struct {
	directory refdata.Directory
	trials    TrialGuard
	store     Store
	latest    LatestStore
	rules     RestrictionsProvider
	notifier  Notifier
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithLatestStore mirrors each stored position into a live-state store.
func WithLatestStore(latest LatestStore) ServiceOption {
	return func(s *Service) { s.latest = latest }
}

// WithNotifier wires the alert dispatcher.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics records processing counters.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService builds the position evaluator.
func NewService(
	directory refdata.Directory,
	trials TrialGuard,
	store Store,
	rules RestrictionsProvider,
	logger *slog.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		directory: directory,
		trials:    trials,
		store:     store,
		rules:     rules,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process runs the ingestion pipeline for one position: resolve the vehicle,
// require an active trial, persist, then classify against the cached
// restrictions. The position row is the artifact of record: it stays
// persisted even when the restrictions fetch fails afterwards.
func (s *Service) Process(ctx context.Context, vehicleID int64, lat, lon float64) (*Result, error) {
	vehicle, err := s.directory.Vehicle(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found")
		}
		return nil, fmt.Errorf("lookup vehicle: %w", err)
	}

	if _, err := s.trials.ActiveByVehicle(ctx, vehicleID); err != nil {
		// Not on a trial: reject before any position row exists.
		return nil, err
	}

	p := &Position{
		VehicleID:  vehicleID,
		RecordedAt: s.now(),
		Latitude:   lat,
		Longitude:  lon,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return nil, fmt.Errorf("store position: %w", err)
	}
	s.mirrorLatest(ctx, p)

	rules, err := s.rules.Get(ctx)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeUnavailable,
			"restrictions unavailable; position was recorded without classification", err)
	}

	classification := classify(p, rules)
	if s.metrics != nil {
		s.metrics.PositionsProcessed.WithLabelValues(string(classification)).Inc()
	}

	result := &Result{
		PositionID:     p.ID,
		Classification: classification,
		Message:        message(classification),
	}

	if classification.Violation() {
		s.handleViolation(ctx, vehicle, p, result)
	}
	return result, nil
}

// classify applies the checks in fixed order: the radius check is a single
// distance computation, the zone check is a scan, so the cheap one runs first
// and short-circuits.
func classify(p *Position, rules *restrictions.Restrictions) Classification {
	home := rules.HomeLocation
	if geo.DistanceMeters(p.Latitude, p.Longitude, home.Latitude, home.Longitude) > rules.MaxRadiusMeters {
		return ClassificationOutOfRadius
	}
	for _, zone := range rules.DangerZones {
		if geo.DistanceMeters(p.Latitude, p.Longitude, zone.Center.Latitude, zone.Center.Longitude) <= zone.RadiusMeters {
			return ClassificationInDangerZone
		}
	}
	return ClassificationNormal
}

func message(c Classification) string {
	switch c {
	case ClassificationOutOfRadius:
		return msgOutOfRadius
	case ClassificationInDangerZone:
		return msgDangerZone
	default:
		return msgRecorded
	}
}

func (s *Service) handleViolation(ctx context.Context, vehicle *refdata.Vehicle, p *Position, result *Result) {
	flipped, err := s.trials.MarkIncident(ctx, p.VehicleID)
	if err != nil {
		// The alert still goes out; the flag can be reconciled later.
		s.logger.ErrorContext(ctx, "failed to mark incident",
			"vehicle_id", p.VehicleID,
			"error", err,
		)
	} else if flipped {
		s.logger.InfoContext(ctx, "trial flagged with incident",
			"vehicle_id", p.VehicleID,
			"classification", result.Classification,
		)
	}

	if s.notifier == nil {
		return
	}
	s.notifier.Enqueue(alerts.Alert{
		Classification: string(result.Classification),
		VehicleID:      p.VehicleID,
		Plate:          vehicle.Plate,
		Latitude:       p.Latitude,
		Longitude:      p.Longitude,
		Message:        result.Message,
		OccurredAt:     p.RecordedAt,
	})
}

// LatestFor returns the live position of a vehicle from the latest store.
func (s *Service) LatestFor(ctx context.Context, vehicleID int64) (*Position, error) {
	if s.latest == nil {
		return nil, dErrors.New(dErrors.CodeUnavailable, "live position tracking is not configured")
	}
	p, err := s.latest.Latest(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no live position for vehicle")
		}
		return nil, fmt.Errorf("get latest position: %w", err)
	}
	return p, nil
}

func (s *Service) mirrorLatest(ctx context.Context, p *Position) {
	if s.latest == nil {
		return
	}
	if err := s.latest.SetLatest(ctx, p); err != nil {
		s.logger.WarnContext(ctx, "failed to mirror latest position",
			"vehicle_id", p.VehicleID,
			"error", err,
		)
	}
}
