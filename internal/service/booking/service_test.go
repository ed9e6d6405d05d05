package booking

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/internal/service/notification"
	"github.com/slotwise/booking-api/internal/service/schedule"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

type fakeRepo struct {
	byKey    map[string]*model.Booking
	existing []model.Booking

	findErr   error
	listErr   error
	createErr error

	created *model.Booking
}

func (f *fakeRepo) ListActiveBetween(context.Context, time.Time, time.Time) ([]model.Booking, error) {
	return f.existing, f.listErr
}

func (f *fakeRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.Booking, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.byKey[key], nil
}

func (f *fakeRepo) Create(_ context.Context, b *model.Booking) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = b
	b.ID = "rec-new"
	return "rec-new", nil
}

type fakeDispatcher struct {
	messages []*model.NotificationMessage
	err      error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg *model.NotificationMessage) error {
	f.messages = append(f.messages, msg)
	return f.err
}

func newService(repo *fakeRepo, dispatcher *fakeDispatcher) *Service {
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	cfg := schedule.SlotConfig{DurationMin: 20, StepMin: 30, BufferMin: 0}
	loc, _ := time.LoadLocation("Europe/Berlin")
	// A nil *fakeDispatcher must become a nil interface, not a typed nil,
	// so the service's dispatcher guard applies.
	var d notification.Dispatcher
	if dispatcher != nil {
		d = dispatcher
	}
	return NewService(repo, cfg, loc, d, log, nil)
}

func validRequest() *model.BookingRequest {
	return &model.BookingRequest{
		Name:           "Ada",
		Email:          "ada@example.com",
		StartLocal:     "2025-06-02T15:00",
		Timezone:       "Europe/Berlin",
		IdempotencyKey: "key-1",
		Source:         "web",
	}
}

func TestBookCreatesBooking(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher := &fakeDispatcher{}
	svc := newService(repo, dispatcher)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeBooked, result.Outcome)
	assert.Equal(t, "rec-new", result.BookingID)

	require.NotNil(t, repo.created)
	// 15:00 Berlin in June is 13:00 UTC; default duration applies.
	assert.Equal(t, time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC), repo.created.StartUTC)
	assert.Equal(t, time.Date(2025, 6, 2, 13, 20, 0, 0, time.UTC), repo.created.EndUTC)
	assert.Equal(t, 20, repo.created.DurationMin)
	assert.Equal(t, model.BookingStatusConfirmed, repo.created.Status)
	assert.Equal(t, "key-1", repo.created.IdempotencyKey)

	require.Len(t, dispatcher.messages, 1)
	msg := dispatcher.messages[0]
	assert.Equal(t, model.NotificationTypeBooking, msg.Type)
	assert.Equal(t, "rec-new", msg.BookingID)
	assert.Equal(t, "2025-06-02T15:00", msg.StartLocal)
}

func TestBookAcceptsSecondsInStartLocal(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, nil)

	req := validRequest()
	req.StartLocal = "2025-06-02T15:00:00"

	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC), repo.created.StartUTC)
}

func TestBookRejectsBadInput(t *testing.T) {
	svc := newService(&fakeRepo{}, nil)

	tests := []struct {
		name   string
		mutate func(*model.BookingRequest)
	}{
		{"bad timezone", func(r *model.BookingRequest) { r.Timezone = "Mars/Olympus" }},
		{"bad startLocal", func(r *model.BookingRequest) { r.StartLocal = "02.06.2025 15:00" }},
		{"negative duration", func(r *model.BookingRequest) { r.DurationMin = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			_, err := svc.Book(context.Background(), req)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidInput))
		})
	}
}

func TestBookReplaysExistingKey(t *testing.T) {
	repo := &fakeRepo{byKey: map[string]*model.Booking{
		"key-1": {ID: "rec-old", IdempotencyKey: "key-1"},
	}}
	dispatcher := &fakeDispatcher{}
	svc := newService(repo, dispatcher)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyProcessed, result.Outcome)
	assert.Equal(t, "rec-old", result.BookingID)
	assert.Nil(t, repo.created)
	// Replays do not re-send the confirmation.
	assert.Empty(t, dispatcher.messages)
}

func TestBookConflictOnOverlap(t *testing.T) {
	start := time.Date(2025, 6, 2, 13, 10, 0, 0, time.UTC)
	repo := &fakeRepo{existing: []model.Booking{{
		ID:       "rec-other",
		StartUTC: start,
		EndUTC:   start.Add(20 * time.Minute),
	}}}
	svc := newService(repo, nil)

	_, err := svc.Book(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
	assert.Nil(t, repo.created)
}

func TestBookBackToBackIsNotConflict(t *testing.T) {
	// Existing booking ends exactly at the requested start.
	end := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	repo := &fakeRepo{existing: []model.Booking{{
		StartUTC: end.Add(-20 * time.Minute),
		EndUTC:   end,
	}}}
	svc := newService(repo, nil)

	_, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
}

func TestBookMapsDuplicateSlotToConflict(t *testing.T) {
	repo := &fakeRepo{createErr: repository.ErrDuplicateSlot}
	svc := newService(repo, nil)

	_, err := svc.Book(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrConflict))
}

func TestBookDuplicateKeyOnWriteReplays(t *testing.T) {
	// The key lands between the replay check and the write; the re-read
	// after the constraint violation surfaces the winner.
	repo := &racingRepo{
		fakeRepo: &fakeRepo{createErr: repository.ErrDuplicateKey},
		winner:   &model.Booking{ID: "rec-winner"},
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	cfg := schedule.SlotConfig{DurationMin: 20, StepMin: 30, BufferMin: 0}
	loc, _ := time.LoadLocation("Europe/Berlin")
	svc := NewService(repo, cfg, loc, nil, log, nil)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeAlreadyProcessed, result.Outcome)
	assert.Equal(t, "rec-winner", result.BookingID)
	assert.Equal(t, 2, repo.calls)
}

// racingRepo misses the first idempotency lookup and hits afterwards,
// simulating a concurrent retry landing between check and write.
type racingRepo struct {
	*fakeRepo
	winner *model.Booking
	calls  int
}

func (r *racingRepo) FindByIdempotencyKey(_ context.Context, _ string) (*model.Booking, error) {
	r.calls++
	if r.calls == 1 {
		return nil, nil
	}
	return r.winner, nil
}

func TestBookTimeoutIsAmbiguous(t *testing.T) {
	repo := &fakeRepo{createErr: context.DeadlineExceeded}
	svc := newService(repo, nil)

	_, err := svc.Book(context.Background(), validRequest())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrAmbiguousWrite))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 504, appErr.StatusCode())
}

func TestBookStoreErrorsSurfaceAsUnavailable(t *testing.T) {
	t.Run("replay check fails", func(t *testing.T) {
		repo := &fakeRepo{findErr: errors.New("upstream 502")}
		_, err := newService(repo, nil).Book(context.Background(), validRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUpstreamUnavailable))
	})

	t.Run("conflict check fails", func(t *testing.T) {
		repo := &fakeRepo{listErr: errors.New("upstream 502")}
		_, err := newService(repo, nil).Book(context.Background(), validRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUpstreamUnavailable))
	})

	t.Run("write fails", func(t *testing.T) {
		repo := &fakeRepo{createErr: errors.New("upstream 500")}
		_, err := newService(repo, nil).Book(context.Background(), validRequest())
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrUpstreamUnavailable))
	})
}

func TestBookSucceedsWhenDispatchFails(t *testing.T) {
	repo := &fakeRepo{}
	dispatcher := &fakeDispatcher{err: errors.New("broker down")}
	svc := newService(repo, dispatcher)

	result, err := svc.Book(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, model.OutcomeBooked, result.Outcome)
}

func TestBookExplicitDurationOverridesDefault(t *testing.T) {
	repo := &fakeRepo{}
	svc := newService(repo, nil)

	req := validRequest()
	req.DurationMin = 40

	_, err := svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 40, repo.created.DurationMin)
	assert.Equal(t, time.Date(2025, 6, 2, 13, 40, 0, 0, time.UTC), repo.created.EndUTC)
}
