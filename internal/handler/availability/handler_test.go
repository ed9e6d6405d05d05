package availability

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/cache"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/availability"
	"github.com/slotwise/booking-api/internal/service/schedule"
	"github.com/slotwise/booking-api/pkg/logger"
)

type fakeRepo struct {
	bookings []model.Booking
	err      error
}

func (f *fakeRepo) ListActiveBetween(context.Context, time.Time, time.Time) ([]model.Booking, error) {
	return f.bookings, f.err
}

func (f *fakeRepo) FindByIdempotencyKey(context.Context, string) (*model.Booking, error) {
	return nil, nil
}

func (f *fakeRepo) Create(context.Context, *model.Booking) (string, error) { return "", nil }

type fakeDisabledRepo struct{ dates []string }

func (f *fakeDisabledRepo) ListDates(context.Context) ([]string, error) { return f.dates, nil }

func setupRouter(t *testing.T, repo *fakeRepo, disabledDates []string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	disabled := cache.NewDisabledDates(&fakeDisabledRepo{dates: disabledDates})
	_, err := disabled.Reload(context.Background())
	require.NoError(t, err)

	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	hours := schedule.WeekHours{1: {Start: "15:00", End: "17:00"}}
	cfg := schedule.SlotConfig{DurationMin: 20, StepMin: 30, BufferMin: 0}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := availability.NewService(repo, disabled, hours, cfg, loc, log, nil)

	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func get(router *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestGetAvailabilityOK(t *testing.T) {
	router := setupRouter(t, &fakeRepo{}, nil)

	w := get(router, "/api/v1/availability?date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	// The body is the bare availability document.
	var resp model.Availability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-06-02", resp.Date)
	assert.False(t, resp.Disabled)
	require.Len(t, resp.Slots, 4)
	assert.Equal(t, "15:00", resp.Slots[0].Time)
}

func TestGetAvailabilityMissingDate(t *testing.T) {
	router := setupRouter(t, &fakeRepo{}, nil)
	w := get(router, "/api/v1/availability")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAvailabilityBadDate(t *testing.T) {
	router := setupRouter(t, &fakeRepo{}, nil)
	w := get(router, "/api/v1/availability?date=junk")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetAvailabilityBlockedDate(t *testing.T) {
	router := setupRouter(t, &fakeRepo{}, []string{"2025-06-02"})

	w := get(router, "/api/v1/availability?date=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.Availability
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Disabled)
	assert.Empty(t, resp.Slots)
}

func TestGetAvailabilityStoreDownReturns503(t *testing.T) {
	router := setupRouter(t, &fakeRepo{err: errors.New("upstream down")}, nil)
	w := get(router, "/api/v1/availability?date=2025-06-02")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
