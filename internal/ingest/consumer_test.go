package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/models"
	"github.com/langchou/parkmeter/internal/repository"
	"github.com/langchou/parkmeter/internal/service"
	"github.com/langchou/parkmeter/internal/state"
)

type handlerFunc func(ctx context.Context, event *models.GateEvent) (*models.GateResult, error)

func (f handlerFunc) Handle(ctx context.Context, event *models.GateEvent) (*models.GateResult, error) {
	return f(ctx, event)
}

func TestProcess(t *testing.T) {
	tests := map[string]struct {
		body     string
		err      error
		ack      bool
		hasError bool
	}{
		"handled": {
			body: `{"plate":"AB-123","type":"Sedan","timestamp":"2024-01-01T08:00:00Z"}`,
			ack:  true,
		},
		"malformed json is dropped": {
			body:     `{"plate":`,
			ack:      true,
			hasError: true,
		},
		"business error is dropped": {
			body:     `{"plate":"AB-123","type":"Boat"}`,
			err:      service.ErrUnrecognizedVehicleType,
			ack:      true,
			hasError: true,
		},
		"store failure is requeued": {
			body:     `{"plate":"AB-123","type":"Sedan"}`,
			err:      service.ErrStoreUnavailable,
			ack:      false,
			hasError: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			c := NewConsumer(zap.NewNop(), handlerFunc(func(ctx context.Context, event *models.GateEvent) (*models.GateResult, error) {
				if test.err != nil {
					return nil, test.err
				}
				return &models.GateResult{Plate: event.Plate, Status: models.StatusEntered}, nil
			}), 1)

			ack, err := c.Process(context.Background(), []byte(test.body))
			assert.Equal(t, test.ack, ack)
			if test.hasError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProcessThroughGate(t *testing.T) {
	tracker := service.NewTracker(zap.NewNop(), repository.NewMemorySessionRepository(), nil, state.NewLocalLocker())
	gate := service.NewGate(zap.NewNop(), tracker, repository.NewMemoryFeeRepository())
	c := NewConsumer(zap.NewNop(), gate, 2)
	ctx := context.Background()

	ack, err := c.Process(ctx, []byte(`{"plate":"AB-123","type":"Bus","timestamp":1704096000000}`))
	require.NoError(t, err)
	assert.True(t, ack)

	ack, err = c.Process(ctx, []byte(`{"plate":"AB-123","type":"Bus","timestamp":"1704103200000"}`))
	require.NoError(t, err)
	assert.True(t, ack)

	sessions, err := tracker.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}
