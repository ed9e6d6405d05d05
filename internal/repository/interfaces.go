package repository

import (
	"context"
	"errors"
	"time"

	"github.com/slotwise/booking-api/internal/model"
)

// ErrDuplicateSlot is returned by backends that enforce slot uniqueness at
// write time; callers treat it as a conflict.
var ErrDuplicateSlot = errors.New("slot already booked")

// ErrDuplicateKey is returned by backends that enforce idempotency-key
// uniqueness at write time; callers re-read and report AlreadyProcessed.
var ErrDuplicateKey = errors.New("idempotency key already used")

// BookingRepository is the domain view of the booking table. The record
// store is the sole source of truth and the sole serialization point;
// implementations hold no state of their own.
type BookingRepository interface {
	// ListActiveBetween returns non-cancelled bookings whose interval
	// intersects [from, to).
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	// FindByIdempotencyKey returns the non-cancelled booking carrying the
	// key, or nil when no such booking exists.
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error)
	// Create persists the booking and returns the store-assigned id.
	Create(ctx context.Context, booking *model.Booking) (string, error)
}

// DisabledDateRepository reads administrator-blocked days.
type DisabledDateRepository interface {
	ListDates(ctx context.Context) ([]string, error)
}
