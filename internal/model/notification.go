package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationTypeBooking NotificationType = "booking"
	NotificationTypeContact NotificationType = "contact"
)

// NotificationMessage is the payload handed off to the notification
// pipeline after a booking write or an accepted contact request. It carries
// everything the worker needs to compose the emails without reading the
// record store again.
type NotificationMessage struct {
	ID        uuid.UUID        `json:"id"`
	Type      NotificationType `json:"type"`
	CreatedAt time.Time        `json:"created_at"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`

	// Booking fields
	BookingID   string    `json:"booking_id,omitempty"`
	StartLocal  string    `json:"start_local,omitempty"`
	Timezone    string    `json:"timezone,omitempty"`
	StartUTC    time.Time `json:"start_utc,omitempty"`
	EndUTC      time.Time `json:"end_utc,omitempty"`
	DurationMin int       `json:"duration_min,omitempty"`

	// Contact fields
	Message  string `json:"message,omitempty"`
	ClientIP string `json:"client_ip,omitempty"`
}
