package trial

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"testdrive/internal/refdata"
	dErrors "testdrive/pkg/domain-errors"
)

func seededDirectory() *refdata.MemoryDirectory {
	dir := refdata.NewMemoryDirectory()
	dir.PutVehicle(refdata.Vehicle{ID: 1, Plate: "AB123CD", ModelID: 7})
	dir.PutVehicle(refdata.Vehicle{ID: 2, Plate: "XY987ZT", ModelID: 7})
	dir.PutBuyer(refdata.Buyer{
		ID:            10,
		FullName:      "Valid Buyer",
		LicenseExpiry: time.Now().Add(365 * 24 * time.Hour),
	})
	dir.PutBuyer(refdata.Buyer{
		ID:            11,
		FullName:      "Expired License",
		LicenseExpiry: time.Now().Add(-24 * time.Hour),
	})
	dir.PutBuyer(refdata.Buyer{
		ID:            12,
		FullName:      "Restricted Buyer",
		Restricted:    true,
		LicenseExpiry: time.Now().Add(365 * 24 * time.Hour),
	})
	dir.PutEmployee(refdata.Employee{ID: 100, FullName: "Sales Person"})
	return dir
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryStore(), seededDirectory())
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc := newTestService(t)
		got, err := svc.Create(ctx, 1, 10, 100)
		require.NoError(t, err)

		assert.NotZero(t, got.ID)
		assert.Equal(t, int64(1), got.VehicleID)
		assert.Nil(t, got.FinishedAt)
		assert.False(t, got.HasIncident)
		assert.False(t, got.StartedAt.IsZero())
	})

	t.Run("vehicle not found", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Create(ctx, 999, 10, 100)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
		assert.EqualError(t, err, "vehicle not found")
	})

	t.Run("vehicle already on a trial", func(t *testing.T) {
		svc := newTestService(t)
		first, err := svc.Create(ctx, 1, 10, 100)
		require.NoError(t, err)

		_, err = svc.Create(ctx, 1, 10, 100)
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		assert.EqualError(t, err, "vehicle is being tested")

		// The existing trial is untouched.
		existing, err := svc.ActiveByVehicle(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, first.ID, existing.ID)
	})

	t.Run("buyer not found", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Create(ctx, 1, 999, 100)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
		assert.EqualError(t, err, "buyer not found")
	})

	t.Run("license expired", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Create(ctx, 1, 11, 100)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		assert.EqualError(t, err, "buyer's license has expired")
	})

	t.Run("buyer restricted", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Create(ctx, 1, 12, 100)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		assert.EqualError(t, err, "buyer is restricted from testing vehicles")
	})

	t.Run("employee not found", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Create(ctx, 1, 10, 999)
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
		assert.EqualError(t, err, "employee not found")
	})

	t.Run("trial check precedes buyer check", func(t *testing.T) {
		// An occupied vehicle with an unknown buyer must report the vehicle,
		// not the buyer.
		svc := newTestService(t)
		_, err := svc.Create(ctx, 1, 10, 100)
		require.NoError(t, err)

		_, err = svc.Create(ctx, 1, 999, 100)
		assert.EqualError(t, err, "vehicle is being tested")
	})
}

func TestCreateConcurrent(t *testing.T) {
	// Property: however many concurrent creates race for one vehicle, exactly
	// one wins and the rest fail validation.
	svc := newTestService(t)
	ctx := context.Background()

	const racers = 50
	var succeeded, rejected atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, 1, 10, 100)
			switch {
			case err == nil:
				succeeded.Add(1)
			case dErrors.Is(err, dErrors.CodeValidation):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(racers-1), rejected.Load())

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestFinalize(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc := newTestService(t)
		created, err := svc.Create(ctx, 1, 10, 100)
		require.NoError(t, err)

		done, err := svc.Finalize(ctx, created.ID, "smooth ride")
		require.NoError(t, err)
		require.NotNil(t, done.FinishedAt)
		assert.Equal(t, "smooth ride", done.Comments)

		// The vehicle is free again.
		_, err = svc.Create(ctx, 1, 10, 100)
		assert.NoError(t, err)
	})

	t.Run("not idempotent", func(t *testing.T) {
		svc := newTestService(t)
		created, err := svc.Create(ctx, 1, 10, 100)
		require.NoError(t, err)

		_, err = svc.Finalize(ctx, created.ID, "first")
		require.NoError(t, err)

		_, err = svc.Finalize(ctx, created.ID, "second")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeValidation))
		assert.EqualError(t, err, "trial already finalized")
	})

	t.Run("not found", func(t *testing.T) {
		svc := newTestService(t)
		_, err := svc.Finalize(ctx, 404, "")
		assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.Create(ctx, 1, 10, 100)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))
	err = svc.Delete(ctx, created.ID)
	assert.True(t, dErrors.Is(err, dErrors.CodeNotFound))
}

func TestMarkIncident(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	created, err := svc.Create(ctx, 1, 10, 100)
	require.NoError(t, err)

	flipped, err := svc.MarkIncident(ctx, 1)
	require.NoError(t, err)
	assert.True(t, flipped)

	// Second violation is a no-op on the flag.
	flipped, err = svc.MarkIncident(ctx, 1)
	require.NoError(t, err)
	assert.False(t, flipped)

	got, err := svc.ActiveByVehicle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.HasIncident)

	incidents, err := svc.ListIncidents(ctx)
	require.NoError(t, err)
	assert.Len(t, incidents, 1)
}

func TestMarkIncidentWithoutActiveTrial(t *testing.T) {
	svc := newTestService(t)

	flipped, err := svc.MarkIncident(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, flipped)
}

func TestListActive(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	first, err := svc.Create(ctx, 1, 10, 100)
	require.NoError(t, err)
	second, err := svc.Create(ctx, 2, 10, 100)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, first.ID, "")
	require.NoError(t, err)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}
