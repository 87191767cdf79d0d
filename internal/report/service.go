package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"testdrive/internal/position"
	"testdrive/internal/refdata"
	"testdrive/internal/trial"
	dErrors "testdrive/pkg/domain-errors"
	"testdrive/pkg/geo"
	"testdrive/pkg/platform/sentinel"
)

const maxConcurrentTrials = 8

// TrialLister is the slice of the trial store the reporter reads.
type TrialLister interface {
	ListFinishedByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]trial.Trial, error)
}

// PositionLister is the slice of the position store the reporter reads.
type PositionLister interface {
	ListByVehicleBetween(ctx context.Context, vehicleID int64, from, to time.Time) ([]position.Position, error)
}

// Service computes distance reports from recorded positions.
type Service struct {
	directory refdata.Directory
	trials    TrialLister
	positions PositionLister
}

// NewService builds the report service.
func NewService(directory refdata.Directory, trials TrialLister, positions PositionLister) *Service {
	return &Service{
		directory: directory,
		trials:    trials,
		positions: positions,
	}
}

// Kilometers reports the distance a vehicle covered during its finished
// trials between from and to. The to date is widened to the end of its day
// so a range expressed in dates includes everything recorded on the last day.
func (s *Service) Kilometers(ctx context.Context, plate string, from, to time.Time) (*KilometersReport, error) {
	vehicle, err := s.directory.VehicleByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "vehicle not found")
		}
		return nil, fmt.Errorf("lookup vehicle by plate: %w", err)
	}

	toAdj := endOfDay(to)
	trials, err := s.trials.ListFinishedByVehicleBetween(ctx, vehicle.ID, from, toAdj)
	if err != nil {
		return nil, fmt.Errorf("list finished trials: %w", err)
	}

	distances := make([]TrialDistance, len(trials))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentTrials)
	for i, tr := range trials {
		g.Go(func() error {
			positions, err := s.positions.ListByVehicleBetween(gctx, tr.VehicleID, tr.StartedAt, *tr.FinishedAt)
			if err != nil {
				return fmt.Errorf("list positions for trial %d: %w", tr.ID, err)
			}
			distances[i] = TrialDistance{
				TrialID:    tr.ID,
				StartedAt:  tr.StartedAt,
				FinishedAt: *tr.FinishedAt,
				Kilometers: TotalDistance(positions) / 1000,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &KilometersReport{
		VehicleID: vehicle.ID,
		Plate:     vehicle.Plate,
		From:      from,
		To:        toAdj,
		Trials:    distances,
	}
	for _, d := range distances {
		report.TotalKilometers += d.Kilometers
	}
	return report, nil
}

// TotalDistance sums the haversine distance between consecutive positions,
// in meters. Fewer than two positions means no measurable movement.
func TotalDistance(positions []position.Position) float64 {
	if len(positions) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(positions); i++ {
		prev, cur := positions[i-1], positions[i]
		total += geo.DistanceMeters(prev.Latitude, prev.Longitude, cur.Latitude, cur.Longitude)
	}
	return total
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
