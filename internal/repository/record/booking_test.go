package record

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository/recordstore"
)

type fakeStore struct {
	records   []recordstore.Record
	gotFilter *recordstore.Filter
	gotFields map[string]interface{}
}

func (f *fakeStore) ListRecords(_ context.Context, _ string, filter *recordstore.Filter) ([]recordstore.Record, error) {
	f.gotFilter = filter
	return f.records, nil
}

func (f *fakeStore) CreateRecord(_ context.Context, _ string, fields map[string]interface{}) (*recordstore.Record, error) {
	f.gotFields = fields
	return &recordstore.Record{ID: "recNEW", Fields: fields}, nil
}

func (f *fakeStore) FindByField(_ context.Context, _, field, value string) ([]recordstore.Record, error) {
	f.gotFilter = &recordstore.Filter{Field: field, Value: value}
	return f.records, nil
}

func bookingRecord(id, start, end, status, key string) recordstore.Record {
	return recordstore.Record{ID: id, Fields: map[string]interface{}{
		"Name":           "Ada",
		"Email":          "ada@example.com",
		"StartUTC":       start,
		"EndUTC":         end,
		"Status":         status,
		"IdempotencyKey": key,
		"DurationMin":    float64(20),
	}}
}

func TestListActiveBetweenExcludesCancelledServerSide(t *testing.T) {
	store := &fakeStore{}
	repo := NewBookingRepository(store, "Bookings")

	_, err := repo.ListActiveBetween(context.Background(),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.NotNil(t, store.gotFilter)
	assert.Equal(t, "Status", store.gotFilter.Field)
	assert.Equal(t, "cancelled", store.gotFilter.Value)
	assert.True(t, store.gotFilter.Exclude)
}

func TestListActiveBetweenWindowsAndSkipsMalformed(t *testing.T) {
	store := &fakeStore{records: []recordstore.Record{
		bookingRecord("in", "2025-06-02T13:00:00Z", "2025-06-02T13:20:00Z", "confirmed", "k1"),
		bookingRecord("before", "2025-06-01T13:00:00Z", "2025-06-01T13:20:00Z", "confirmed", "k2"),
		bookingRecord("after", "2025-06-03T13:00:00Z", "2025-06-03T13:20:00Z", "confirmed", "k3"),
		bookingRecord("bad", "yesterday", "2025-06-02T13:20:00Z", "confirmed", "k4"),
	}}
	repo := NewBookingRepository(store, "Bookings")

	bookings, err := repo.ListActiveBetween(context.Background(),
		time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, bookings, 1)
	assert.Equal(t, "in", bookings[0].ID)
	assert.Equal(t, 20, bookings[0].DurationMin)
}

func TestFindByIdempotencyKeySkipsCancelled(t *testing.T) {
	store := &fakeStore{records: []recordstore.Record{
		bookingRecord("recC", "2025-06-02T13:00:00Z", "2025-06-02T13:20:00Z", "cancelled", "k1"),
		bookingRecord("recA", "2025-06-02T14:00:00Z", "2025-06-02T14:20:00Z", "confirmed", "k1"),
	}}
	repo := NewBookingRepository(store, "Bookings")

	found, err := repo.FindByIdempotencyKey(context.Background(), "k1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "recA", found.ID)
}

func TestFindByIdempotencyKeyMissReturnsNil(t *testing.T) {
	repo := NewBookingRepository(&fakeStore{}, "Bookings")

	found, err := repo.FindByIdempotencyKey(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCreateWritesCanonicalFields(t *testing.T) {
	store := &fakeStore{}
	repo := NewBookingRepository(store, "Bookings")

	start := time.Date(2025, 6, 2, 13, 0, 0, 0, time.UTC)
	id, err := repo.Create(context.Background(), &model.Booking{
		Name:           "Ada",
		Email:          "ada@example.com",
		StartUTC:       start,
		EndUTC:         start.Add(20 * time.Minute),
		Timezone:       "Europe/Berlin",
		DurationMin:    20,
		Status:         model.BookingStatusConfirmed,
		IdempotencyKey: "k1",
	})
	require.NoError(t, err)
	assert.Equal(t, "recNEW", id)

	assert.Equal(t, "2025-06-02T13:00:00Z", store.gotFields["StartUTC"])
	assert.Equal(t, "2025-06-02T13:20:00Z", store.gotFields["EndUTC"])
	assert.Equal(t, "confirmed", store.gotFields["Status"])
	assert.Equal(t, "k1", store.gotFields["IdempotencyKey"])
}
