package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/langchou/parkmeter/internal/repository"
	"github.com/langchou/parkmeter/internal/service"
	"github.com/langchou/parkmeter/internal/state"
	"github.com/langchou/parkmeter/pkg/ws"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	history := repository.NewMemoryParkingRepository()
	rates := repository.NewMemoryFeeRepository()
	tracker := service.NewTracker(logger, repository.NewMemorySessionRepository(), history, state.NewLocalLocker())
	gate := service.NewGate(logger, tracker, rates)

	hub := ws.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	h := NewHandler(logger, gate, tracker, service.NewRateService(logger, rates), history, hub)
	r := gin.New()
	h.RegisterRoutes(r, "/metrics")
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestUploadEntryThenExit(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, http.MethodPost, "/api/upload", `{"plate":"AB-123","type":"Sedan","timestamp":"2024-01-05T22:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "AB-123", body["plate"])
	assert.Equal(t, "entered", body["status"])
	assert.NotContains(t, body, "fee")

	w, body = do(r, http.MethodGet, "/api/sessions/AB-123", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Car", body["data"].(map[string]interface{})["type"])

	// 旧版路径与 entryTime 字段
	w, body = do(r, http.MethodPost, "/upload", `{"plate":"AB-123","type":"Sedan","entryTime":"2024-01-06T02:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "exited", body["status"])
	assert.Equal(t, 12.0, body["fee"])

	w, _ = do(r, http.MethodGet, "/api/sessions/AB-123", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(r, http.MethodGet, "/api/parkings", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, 1.0, body["pagination"].(map[string]interface{})["total"])
}

func TestUploadErrors(t *testing.T) {
	tests := map[string]struct {
		body   string
		status int
		kind   string
	}{
		"malformed body": {
			body:   `{"plate":`,
			status: http.StatusBadRequest,
		},
		"missing plate": {
			body:   `{"type":"Sedan"}`,
			status: http.StatusBadRequest,
			kind:   string(service.KindMissingPlate),
		},
		"unrecognized type": {
			body:   `{"plate":"AB-123","type":"Spaceship"}`,
			status: http.StatusBadRequest,
			kind:   string(service.KindUnrecognizedVehicleType),
		},
		"bad timestamp": {
			body:   `{"plate":"AB-123","type":"Sedan","timestamp":"soon"}`,
			status: http.StatusBadRequest,
			kind:   string(service.KindInvalidTimestamp),
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			r := newRouter(t)
			w, body := do(r, http.MethodPost, "/api/upload", test.body)
			assert.Equal(t, test.status, w.Code)
			assert.NotEmpty(t, body["error"])
			if test.kind != "" {
				assert.Equal(t, test.kind, body["kind"])
			}
		})
	}
}

func TestFees(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, http.MethodGet, "/fees", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 3)

	w, _ = do(r, http.MethodPut, "/api/fees", `[{"type":"Car","weekday_rate":3,"friday_rate":3,"saturday_rate":3,"sunday_rate":3}]`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body = do(r, http.MethodGet, "/api/fees/Car", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, body["data"].(map[string]interface{})["weekday_rate"])

	w, _ = do(r, http.MethodPost, "/api/fees", `{"type":"Truck","weekday_rate":-1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(r, http.MethodPut, "/api/fees", `{"type":"Car"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, bad := range []string{`[null]`, `[{"type":"Car","weekday_rate":1}, null]`} {
		w, _ = do(r, http.MethodPut, "/api/fees", bad)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w, body = do(r, http.MethodGet, "/api/fees/Car", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3.0, body["data"].(map[string]interface{})["weekday_rate"])

	w, body = do(r, http.MethodGet, "/api/fees/Boat", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, string(service.KindScheduleNotFound), body["kind"])
}

func TestStatusFor(t *testing.T) {
	tests := map[error]int{
		service.ErrMissingPlate:       http.StatusBadRequest,
		service.ErrInvalidSchedule:    http.StatusBadRequest,
		service.ErrScheduleNotFound:   http.StatusNotFound,
		service.ErrPlateAlreadyInside: http.StatusConflict,
		service.ErrPlateNotInside:     http.StatusConflict,
		service.ErrStoreUnavailable:   http.StatusServiceUnavailable,
		assert.AnError:                http.StatusInternalServerError,
	}
	for err, status := range tests {
		assert.Equal(t, status, statusFor(err), err.Error())
	}
}

func TestHealthAndMetrics(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])

	w, _ = do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestListParkingsPageBounds(t *testing.T) {
	r := newRouter(t)

	w, _ := do(r, http.MethodPost, "/api/upload", `{"plate":"AB-123","type":"Sedan","timestamp":"2024-01-01T08:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(r, http.MethodPost, "/api/upload", `{"plate":"AB-123","type":"Sedan","timestamp":"2024-01-01T09:00:00Z"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodGet, "/api/parkings?page=288230376151711744&per_page=64", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body := do(r, http.MethodGet, "/api/parkings?page=5&per_page=64", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["data"])
	assert.Equal(t, 1.0, body["pagination"].(map[string]interface{})["total"])
}

func TestUploadRejectsOutOfRangeTimestamp(t *testing.T) {
	r := newRouter(t)

	w, body := do(r, http.MethodPost, "/api/upload", `{"plate":"AB-123","type":"Sedan","timestamp":1e300}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(service.KindInvalidTimestamp), body["kind"])
}
