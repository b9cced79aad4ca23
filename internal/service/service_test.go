package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/fee"
	"github.com/langchou/parkmeter/internal/models"
	"github.com/langchou/parkmeter/internal/repository"
	"github.com/langchou/parkmeter/internal/state"
)

// 2024-01-01 是周一
var monday = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var carRates = &models.RateSchedule{VehicleClass: models.ClassCar, WeekdayRate: 1, FridayRate: 2, SaturdayRate: 4, SundayRate: 0}

// flakySessions 可注入故障的会话仓库
type flakySessions struct {
	*repository.MemorySessionRepository
	mu         sync.Mutex
	failDelete bool
	failGet    bool
}

func (f *flakySessions) Get(ctx context.Context, plate string) (*models.Session, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return nil, errors.New("connection refused")
	}
	return f.MemorySessionRepository.Get(ctx, plate)
}

func (f *flakySessions) Delete(ctx context.Context, plate string) error {
	f.mu.Lock()
	fail := f.failDelete
	f.mu.Unlock()
	if fail {
		return errors.New("connection reset")
	}
	return f.MemorySessionRepository.Delete(ctx, plate)
}

type fixture struct {
	sessions *flakySessions
	rates    *repository.MemoryFeeRepository
	history  *repository.MemoryParkingRepository
	tracker  *Tracker
	gate     *Gate
}

func newFixture() *fixture {
	f := &fixture{
		sessions: &flakySessions{MemorySessionRepository: repository.NewMemorySessionRepository()},
		rates:    repository.NewMemoryFeeRepository(),
		history:  repository.NewMemoryParkingRepository(),
	}
	f.tracker = NewTracker(zap.NewNop(), f.sessions, f.history, state.NewLocalLocker())
	f.gate = NewGate(zap.NewNop(), f.tracker, f.rates)
	return f
}

func TestClassify(t *testing.T) {
	recognised := map[string]models.VehicleClass{
		"Sedan":      models.ClassCar,
		"SUV":        models.ClassCar,
		"Pickup":     models.ClassCar,
		"Van":        models.ClassCar,
		"Truck":      models.ClassTruck,
		"Bus":        models.ClassTruck,
		"Trailer":    models.ClassTruck,
		"Motorcycle": models.ClassMotorcycle,
		"Bicycle":    models.ClassMotorcycle,
	}
	for raw, expected := range recognised {
		t.Run(raw, func(t *testing.T) {
			class, err := Classify(raw)
			require.NoError(t, err)
			assert.Equal(t, expected, class)
		})
	}

	for _, raw := range []string{"", "sedan", "SEDAN", " Sedan", "Sedan ", "Car", "Boat", "Bus/Truck"} {
		t.Run("unrecognized "+raw, func(t *testing.T) {
			_, err := Classify(raw)
			assert.ErrorIs(t, err, ErrUnrecognizedVehicleType)
			assert.Equal(t, KindUnrecognizedVehicleType, KindOf(err))
		})
	}
}

func TestRecordEntryThenExit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	t0 := monday.Add(9 * time.Hour)
	t1 := t0.Add(3*time.Hour + 20*time.Minute)

	session, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, t0)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, t0, session.EntryTime)

	result, err := f.tracker.RecordExit(ctx, "AB-123", t1, carRates)
	require.NoError(t, err)
	assert.Equal(t, "AB-123", result.Plate)
	assert.Equal(t, fee.Compute(t0, t1, fee.Expand(carRates)), result.Fee)
	assert.Equal(t, 4.0, result.Fee)

	current, err := f.tracker.Lookup(ctx, "AB-123")
	require.NoError(t, err)
	assert.Nil(t, current)

	count, _ := f.history.Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestRecordExitWithoutSession(t *testing.T) {
	f := newFixture()

	_, err := f.tracker.RecordExit(context.Background(), "AB-123", monday, carRates)
	assert.ErrorIs(t, err, ErrPlateNotInside)

	count, _ := f.history.Count(context.Background())
	assert.Zero(t, count)
}

func TestDuplicateEntryRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday)
	require.NoError(t, err)

	_, err = f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday.Add(time.Hour))
	assert.ErrorIs(t, err, ErrPlateAlreadyInside)

	current, err := f.tracker.Lookup(ctx, "AB-123")
	require.NoError(t, err)
	assert.Equal(t, monday, current.EntryTime)
}

func TestMissingPlate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tracker.RecordEntry(ctx, "", models.ClassCar, monday)
	assert.ErrorIs(t, err, ErrMissingPlate)

	_, err = f.tracker.RecordExit(ctx, "", monday, carRates)
	assert.ErrorIs(t, err, ErrMissingPlate)

	sessions, err := f.tracker.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestConcurrentEntriesForOnePlate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrPlateAlreadyInside):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, rejected)
}

func TestConcurrentExitsChargeOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday)
	require.NoError(t, err)

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.tracker.RecordExit(ctx, "AB-123", monday.Add(2*time.Hour), carRates)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrPlateNotInside)
		}
	}
	assert.Equal(t, 1, ok)

	count, _ := f.history.Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestExitRetryAfterStoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday)
	require.NoError(t, err)

	f.sessions.failDelete = true
	_, err = f.tracker.RecordExit(ctx, "AB-123", monday.Add(2*time.Hour), carRates)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	// 删除失败后车辆仍在场内
	current, err := f.tracker.Lookup(ctx, "AB-123")
	require.NoError(t, err)
	require.NotNil(t, current)

	f.sessions.failDelete = false
	result, err := f.tracker.RecordExit(ctx, "AB-123", monday.Add(2*time.Hour), carRates)
	require.NoError(t, err)
	assert.Equal(t, 2.0, result.Fee)

	count, _ := f.history.Count(ctx)
	assert.Equal(t, int64(1), count)
}

func TestStoreUnavailableOnRead(t *testing.T) {
	f := newFixture()
	f.sessions.failGet = true

	_, err := f.tracker.RecordEntry(context.Background(), "AB-123", models.ClassCar, monday)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	var e *Error
	require.True(t, errors.As(err, &e))
	assert.EqualError(t, e.Unwrap(), "connection refused")
}

func TestRecordExitWithoutSchedule(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.tracker.RecordEntry(ctx, "AB-123", models.ClassCar, monday)
	require.NoError(t, err)

	_, err = f.tracker.RecordExit(ctx, "AB-123", monday.Add(time.Hour), nil)
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	current, _ := f.tracker.Lookup(ctx, "AB-123")
	assert.NotNil(t, current)
}
