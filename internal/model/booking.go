package model

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is the canonical booking record. Times are stored UTC; Timezone is
// the client's IANA zone, kept for display only.
type Booking struct {
	ID             string        `json:"id" db:"id"`
	Name           string        `json:"name" db:"name"`
	Email          string        `json:"email" db:"email"`
	Phone          string        `json:"phone,omitempty" db:"phone"`
	StartUTC       time.Time     `json:"start_utc" db:"start_utc"`
	EndUTC         time.Time     `json:"end_utc" db:"end_utc"`
	Timezone       string        `json:"timezone" db:"timezone"`
	DurationMin    int           `json:"duration_min" db:"duration_min"`
	Status         BookingStatus `json:"status" db:"status"`
	Source         string        `json:"source" db:"source"`
	IdempotencyKey string        `json:"idempotency_key" db:"idempotency_key"`
	CreatedAt      time.Time     `json:"created_at" db:"created_at"`
}

// BookingRequest is the POST /book payload. StartLocal is a zone-less local
// datetime ("2006-01-02T15:04") interpreted in Timezone.
type BookingRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Phone          string `json:"phone"`
	StartLocal     string `json:"startLocal" binding:"required"`
	Timezone       string `json:"timezone" binding:"required,iana_tz"`
	DurationMin    int    `json:"durationMin"`
	IdempotencyKey string `json:"idempotencyKey" binding:"required"`
	Source         string `json:"source"`
}

type BookingOutcome string

const (
	OutcomeBooked           BookingOutcome = "booked"
	OutcomeAlreadyProcessed BookingOutcome = "already_processed"
)

// BookingResult reports the outcome of a Book call. Conflicts are reported
// as errors, not results, so only the two success outcomes appear here.
type BookingResult struct {
	Outcome   BookingOutcome `json:"outcome"`
	BookingID string         `json:"booking_id"`
}

// DisabledDate is an administrator-blocked calendar day (YYYY-MM-DD).
type DisabledDate struct {
	ID   string `json:"id" db:"id"`
	Date string `json:"date" db:"date"`
}
