package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
)

// Schema (migrations live with the deployment, kept here for reference):
//
//	CREATE TABLE bookings (
//	    id              UUID PRIMARY KEY,
//	    name            TEXT NOT NULL,
//	    email           TEXT NOT NULL,
//	    phone           TEXT NOT NULL DEFAULT '',
//	    start_utc       TIMESTAMPTZ NOT NULL,
//	    end_utc         TIMESTAMPTZ NOT NULL,
//	    timezone        TEXT NOT NULL,
//	    duration_min    INT NOT NULL,
//	    status          TEXT NOT NULL,
//	    source          TEXT NOT NULL DEFAULT '',
//	    idempotency_key TEXT NOT NULL,
//	    created_at      TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX bookings_idempotency_key
//	    ON bookings (idempotency_key) WHERE status <> 'cancelled';
//	CREATE UNIQUE INDEX bookings_slot_start
//	    ON bookings (start_utc) WHERE status <> 'cancelled';
//
// The two partial unique indexes close the read-then-write race the hosted
// record stores leave open: a duplicate retry or a lost race surfaces as a
// constraint violation instead of a second row.

type BookingRepository struct {
	db *sqlx.DB
}

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) ListActiveBetween(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	query := `
		SELECT id, name, email, phone, start_utc, end_utc, timezone,
		       duration_min, status, source, idempotency_key, created_at
		FROM bookings
		WHERE status <> 'cancelled'
		  AND start_utc < $2
		  AND end_utc > $1
		ORDER BY start_utc ASC
	`
	var bookings []model.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

func (r *BookingRepository) FindByIdempotencyKey(ctx context.Context, key string) (*model.Booking, error) {
	query := `
		SELECT id, name, email, phone, start_utc, end_utc, timezone,
		       duration_min, status, source, idempotency_key, created_at
		FROM bookings
		WHERE idempotency_key = $1 AND status <> 'cancelled'
	`
	var booking model.Booking
	err := r.db.GetContext(ctx, &booking, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find booking by key: %w", err)
	}
	return &booking, nil
}

func (r *BookingRepository) Create(ctx context.Context, booking *model.Booking) (string, error) {
	query := `
		INSERT INTO bookings (
			id, name, email, phone, start_utc, end_utc, timezone,
			duration_min, status, source, idempotency_key, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	id := uuid.New().String()
	booking.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		id,
		booking.Name,
		booking.Email,
		booking.Phone,
		booking.StartUTC,
		booking.EndUTC,
		booking.Timezone,
		booking.DurationMin,
		booking.Status,
		booking.Source,
		booking.IdempotencyKey,
		booking.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "bookings_idempotency_key":
				return "", repository.ErrDuplicateKey
			case "bookings_slot_start":
				return "", repository.ErrDuplicateSlot
			}
		}
		return "", fmt.Errorf("failed to create booking: %w", err)
	}

	booking.ID = id
	return id, nil
}
