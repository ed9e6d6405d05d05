// Package record adapts the domain model to the tabular record stores.
// Field names follow the store schema: StartUTC, EndUTC, IdempotencyKey,
// Status, Source.
package record

import (
	"context"
	"fmt"
	"time"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository/recordstore"
)

const (
	fieldName           = "Name"
	fieldEmail          = "Email"
	fieldPhone          = "Phone"
	fieldStartUTC       = "StartUTC"
	fieldEndUTC         = "EndUTC"
	fieldTimezone       = "Timezone"
	fieldDurationMin    = "DurationMin"
	fieldStatus         = "Status"
	fieldSource         = "Source"
	fieldIdempotencyKey = "IdempotencyKey"
)

type BookingRepository struct {
	store recordstore.Store
	table string
}

func NewBookingRepository(store recordstore.Store, table string) *BookingRepository {
	return &BookingRepository{store: store, table: table}
}

func bookingFromRecord(r recordstore.Record) (model.Booking, error) {
	start, err := time.Parse(time.RFC3339, r.StringField(fieldStartUTC))
	if err != nil {
		return model.Booking{}, fmt.Errorf("record %s: bad StartUTC: %w", r.ID, err)
	}
	end, err := time.Parse(time.RFC3339, r.StringField(fieldEndUTC))
	if err != nil {
		return model.Booking{}, fmt.Errorf("record %s: bad EndUTC: %w", r.ID, err)
	}

	return model.Booking{
		ID:             r.ID,
		Name:           r.StringField(fieldName),
		Email:          r.StringField(fieldEmail),
		Phone:          r.StringField(fieldPhone),
		StartUTC:       start.UTC(),
		EndUTC:         end.UTC(),
		Timezone:       r.StringField(fieldTimezone),
		DurationMin:    int(r.NumberField(fieldDurationMin)),
		Status:         model.BookingStatus(r.StringField(fieldStatus)),
		Source:         r.StringField(fieldSource),
		IdempotencyKey: r.StringField(fieldIdempotencyKey),
	}, nil
}

// ListActiveBetween lists all non-cancelled bookings and narrows them to
// the window client-side; the hosted stores have no range query worth the
// formula-escaping trouble at this volume.
func (r *BookingRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	records, err := r.store.ListRecords(ctx, r.table, &recordstore.Filter{
		Field:   fieldStatus,
		Value:   string(model.BookingStatusCancelled),
		Exclude: true,
	})
	if err != nil {
		return nil, err
	}

	var bookings []model.Booking
	for _, rec := range records {
		booking, err := bookingFromRecord(rec)
		if err != nil {
			// Malformed rows are skipped, not fatal: a hand-edited record
			// must not take the whole availability read down.
			continue
		}
		if booking.StartUTC.Before(to) && from.Before(booking.EndUTC) {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (r *BookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	records, err := r.store.FindByField(ctx, r.table, fieldIdempotencyKey, key)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		booking, err := bookingFromRecord(rec)
		if err != nil {
			continue
		}
		if booking.Status != model.BookingStatusCancelled {
			return &booking, nil
		}
	}
	return nil, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) (string, error) {
	fields := map[string]interface{}{
		fieldName:           booking.Name,
		fieldEmail:          booking.Email,
		fieldPhone:          booking.Phone,
		fieldStartUTC:       booking.StartUTC.UTC().Format(time.RFC3339),
		fieldEndUTC:         booking.EndUTC.UTC().Format(time.RFC3339),
		fieldTimezone:       booking.Timezone,
		fieldDurationMin:    booking.DurationMin,
		fieldStatus:         string(booking.Status),
		fieldSource:         booking.Source,
		fieldIdempotencyKey: booking.IdempotencyKey,
	}

	created, err := r.store.CreateRecord(ctx, r.table, fields)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}
