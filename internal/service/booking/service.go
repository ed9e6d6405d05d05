// Package booking orchestrates booking writes: idempotent replay detection,
// conflict checking against existing bookings and the notification handoff.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/internal/service/notification"
	"github.com/slotwise/booking-api/internal/service/schedule"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

// startLocal is accepted with or without seconds.
var startLocalLayouts = []string{"2006-01-02T15:04", "2006-01-02T15:04:05"}

type Service struct {
	bookings   repository.BookingRepository
	slotCfg    schedule.SlotConfig
	location   *time.Location
	dispatcher notification.Dispatcher
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewService(
	bookings repository.BookingRepository,
	slotCfg schedule.SlotConfig,
	location *time.Location,
	dispatcher notification.Dispatcher,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		bookings:   bookings,
		slotCfg:    slotCfg,
		location:   location,
		dispatcher: dispatcher,
		logger:     log,
		metrics:    m,
	}
}

// Book creates a booking or replays a previous outcome. The record store is
// the sole serialization point: there is no in-process lock, the final word
// on duplicates belongs to the store.
func (s *Service) Book(ctx context.Context, req *model.BookingRequest) (*model.BookingResult, error) {
	startUTC, tz, err := s.resolveStart(req)
	if err != nil {
		return nil, err
	}

	duration := req.DurationMin
	if duration == 0 {
		duration = s.slotCfg.DurationMin
	}
	if duration < 0 {
		return nil, apperrors.NewInvalidInput("durationMin must be positive", nil)
	}
	endUTC := startUTC.Add(time.Duration(duration) * time.Minute)

	// Replay check before anything else: a retry of a processed request
	// must succeed without touching the calendar.
	existing, err := s.bookings.FindByIdempotencyKey(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable("booking store", err)
	}
	if existing != nil {
		if s.metrics != nil {
			s.metrics.BookingReplays.Inc()
		}
		s.logger.Info("idempotent booking replay",
			"idempotency_key", req.IdempotencyKey,
			"booking_id", existing.ID,
		)
		return &model.BookingResult{
			Outcome:   model.OutcomeAlreadyProcessed,
			BookingID: existing.ID,
		}, nil
	}

	if err := s.checkConflict(ctx, startUTC, endUTC); err != nil {
		return nil, err
	}

	booking := &model.Booking{
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		StartUTC:       startUTC,
		EndUTC:         endUTC,
		Timezone:       tz.String(),
		DurationMin:    duration,
		Status:         model.BookingStatusConfirmed,
		Source:         req.Source,
		IdempotencyKey: req.IdempotencyKey,
	}

	id, err := s.bookings.Create(ctx, booking)
	if err != nil {
		return s.mapCreateError(ctx, req, err)
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	s.logger.Info("booking created",
		"booking_id", id,
		"start_utc", startUTC.Format(time.RFC3339),
	)

	s.dispatch(ctx, req, booking, id)

	return &model.BookingResult{Outcome: model.OutcomeBooked, BookingID: id}, nil
}

// resolveStart interprets the zone-less local start in the client timezone
// and returns it in UTC.
func (s *Service) resolveStart(req *model.BookingRequest) (time.Time, *time.Location, error) {
	tz, err := time.LoadLocation(req.Timezone)
	if err != nil {
		return time.Time{}, nil, apperrors.NewInvalidInput(
			fmt.Sprintf("unknown timezone %q", req.Timezone), err)
	}

	for _, layout := range startLocalLayouts {
		if start, err := time.ParseInLocation(layout, req.StartLocal, tz); err == nil {
			return start.UTC(), tz, nil
		}
	}
	return time.Time{}, nil, apperrors.NewInvalidInput(
		fmt.Sprintf("invalid startLocal %q, want YYYY-MM-DDTHH:mm", req.StartLocal), nil)
}

func (s *Service) checkConflict(ctx context.Context, startUTC, endUTC time.Time) error {
	existing, err := s.bookings.ListActiveBetween(ctx, startUTC.Add(-24*time.Hour), endUTC.Add(24*time.Hour))
	if err != nil {
		return apperrors.NewUpstreamUnavailable("booking store", err)
	}
	for _, b := range existing {
		if schedule.Overlaps(startUTC, endUTC, b.StartUTC, b.EndUTC) {
			if s.metrics != nil {
				s.metrics.BookingConflicts.Inc()
			}
			return apperrors.NewConflict("slot is no longer available", nil)
		}
	}
	return nil
}

// mapCreateError translates write failures. A timed-out write is ambiguous:
// the row may have landed, so the client gets 504 and retries with the same
// idempotency key instead of being told the booking failed.
func (s *Service) mapCreateError(ctx context.Context, req *model.BookingRequest, err error) (*model.BookingResult, error) {
	switch {
	case errors.Is(err, repository.ErrDuplicateSlot):
		if s.metrics != nil {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, apperrors.NewConflict("slot is no longer available", err)

	case errors.Is(err, repository.ErrDuplicateKey):
		// Lost a race against our own retry; surface the winner.
		existing, findErr := s.bookings.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if findErr != nil || existing == nil {
			return nil, apperrors.NewUpstreamUnavailable("booking store", err)
		}
		if s.metrics != nil {
			s.metrics.BookingReplays.Inc()
		}
		return &model.BookingResult{
			Outcome:   model.OutcomeAlreadyProcessed,
			BookingID: existing.ID,
		}, nil

	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Error(err, "booking write timed out, outcome unknown",
			"idempotency_key", req.IdempotencyKey)
		return nil, apperrors.NewAmbiguousWrite(
			"booking may or may not have been created, retry with the same idempotency key", err)

	default:
		return nil, apperrors.NewUpstreamUnavailable("booking store", err)
	}
}

// dispatch hands the confirmation off to the notification pipeline. Failures
// here never fail the booking.
func (s *Service) dispatch(ctx context.Context, req *model.BookingRequest, booking *model.Booking, id string) {
	if s.dispatcher == nil {
		return
	}
	msg := &model.NotificationMessage{
		ID:          uuid.New(),
		Type:        model.NotificationTypeBooking,
		CreatedAt:   time.Now().UTC(),
		Name:        booking.Name,
		Email:       booking.Email,
		Phone:       booking.Phone,
		BookingID:   id,
		StartLocal:  req.StartLocal,
		Timezone:    booking.Timezone,
		StartUTC:    booking.StartUTC,
		EndUTC:      booking.EndUTC,
		DurationMin: booking.DurationMin,
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Error(err, "failed to dispatch booking notification", "booking_id", id)
	}
}
