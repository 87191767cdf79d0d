//go:build integration

package trial_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"testdrive/internal/trial"
	"testdrive/pkg/platform/sentinel"
	"testdrive/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *trial.PostgresStore

	vehicleID  int64
	buyerID    int64
	employeeID int64
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = trial.NewPostgres(s.pg.DB)

	ctx := context.Background()
	var err error
	s.vehicleID, err = s.pg.SeedVehicle(ctx, "AB123CD", 1)
	s.Require().NoError(err)
	s.buyerID, err = s.pg.SeedBuyer(ctx, "Ana Torres", false, time.Now().AddDate(1, 0, 0))
	s.Require().NoError(err)
	s.employeeID, err = s.pg.SeedEmployee(ctx, "Marta Diaz")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newTrial() *trial.Trial {
	return &trial.Trial{
		VehicleID:  s.vehicleID,
		BuyerID:    s.buyerID,
		EmployeeID: s.employeeID,
		StartedAt:  time.Now().UTC().Truncate(time.Millisecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()

	t := s.newTrial()
	s.Require().NoError(s.store.Create(ctx, t))
	s.NotZero(t.ID)

	got, err := s.store.Get(ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.VehicleID, got.VehicleID)
	s.Nil(got.FinishedAt)
	s.False(got.HasIncident)
}

func (s *PostgresStoreSuite) TestCreateSecondActiveConflicts() {
	ctx := context.Background()

	s.Require().NoError(s.store.Create(ctx, s.newTrial()))

	err := s.store.Create(ctx, s.newTrial())
	s.Require().Error(err)
	s.ErrorIs(err, sentinel.ErrConflict)
}

// TestCreateConcurrent drives the partial unique index: many goroutines race
// to start a trial for the same vehicle and exactly one row may exist.
func (s *PostgresStoreSuite) TestCreateConcurrent() {
	ctx := context.Background()

	const racers = 20
	var wg sync.WaitGroup
	var successes, conflicts, unexpected atomic.Int32

	for range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, s.newTrial())
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicts.Add(1)
			default:
				unexpected.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successes.Load(), "exactly one create should win")
	s.Equal(int32(racers-1), conflicts.Load())
	s.Equal(int32(0), unexpected.Load())
}

func (s *PostgresStoreSuite) TestFinalizeOnce() {
	ctx := context.Background()

	t := s.newTrial()
	s.Require().NoError(s.store.Create(ctx, t))

	finishedAt := time.Now().UTC().Truncate(time.Millisecond)
	finished, err := s.store.Finalize(ctx, t.ID, finishedAt, "all good")
	s.Require().NoError(err)
	s.Require().NotNil(finished.FinishedAt)
	s.Equal("all good", finished.Comments)

	_, err = s.store.Finalize(ctx, t.ID, finishedAt.Add(time.Minute), "again")
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.Finalize(ctx, t.ID+999, finishedAt, "")
	s.ErrorIs(err, sentinel.ErrNotFound)

	// Finalizing frees the vehicle for the next trial.
	s.NoError(s.store.Create(ctx, s.newTrial()))
}

func (s *PostgresStoreSuite) TestMarkIncidentIdempotent() {
	ctx := context.Background()

	t := s.newTrial()
	s.Require().NoError(s.store.Create(ctx, t))

	flipped, err := s.store.MarkIncident(ctx, s.vehicleID)
	s.Require().NoError(err)
	s.True(flipped)

	flipped, err = s.store.MarkIncident(ctx, s.vehicleID)
	s.Require().NoError(err)
	s.False(flipped)

	incidents, err := s.store.ListIncidents(ctx)
	s.Require().NoError(err)
	s.Len(incidents, 1)
	s.True(incidents[0].HasIncident)
}

func (s *PostgresStoreSuite) TestDelete() {
	ctx := context.Background()

	t := s.newTrial()
	s.Require().NoError(s.store.Create(ctx, t))
	s.Require().NoError(s.store.Delete(ctx, t.ID))

	s.ErrorIs(s.store.Delete(ctx, t.ID), sentinel.ErrNotFound)
	_, err := s.store.Get(ctx, t.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFinishedByVehicleBetween() {
	ctx := context.Background()
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t := s.newTrial()
	t.StartedAt = base
	s.Require().NoError(s.store.Create(ctx, t))
	_, err := s.store.Finalize(ctx, t.ID, base.Add(time.Hour), "")
	s.Require().NoError(err)

	// Overlapping window finds it.
	found, err := s.store.ListFinishedByVehicleBetween(ctx, s.vehicleID, base.Add(-time.Hour), base.Add(30*time.Minute))
	s.Require().NoError(err)
	s.Len(found, 1)

	// A window that closed before the trial started does not.
	found, err = s.store.ListFinishedByVehicleBetween(ctx, s.vehicleID, base.Add(-2*time.Hour), base.Add(-time.Hour))
	s.Require().NoError(err)
	s.Empty(found)
}
