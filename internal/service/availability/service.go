// Package availability computes the offerable slots for a calendar day.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/slotwise/booking-api/internal/cache"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/repository"
	"github.com/slotwise/booking-api/internal/service/schedule"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

type Service struct {
	bookings repository.BookingRepository
	disabled *cache.DisabledDates
	hours    schedule.WeekHours
	slotCfg  schedule.SlotConfig
	location *time.Location
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(
	bookings repository.BookingRepository,
	disabled *cache.DisabledDates,
	hours schedule.WeekHours,
	slotCfg schedule.SlotConfig,
	location *time.Location,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		bookings: bookings,
		disabled: disabled,
		hours:    hours,
		slotCfg:  slotCfg,
		location: location,
		logger:   log,
		metrics:  m,
	}
}

// GetAvailability returns the slot list for a YYYY-MM-DD date. A blocked or
// closed day comes back with Disabled=true and no slots. When existing
// bookings cannot be fetched the day is NOT served as fully open; the error
// propagates and the handler answers 503.
func (s *Service) GetAvailability(ctx context.Context, dateISO string) (*model.Availability, error) {
	parsed, err := time.ParseInLocation("2006-01-02", dateISO, s.location)
	if err != nil {
		return nil, apperrors.NewInvalidInput(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", dateISO), err)
	}

	if s.metrics != nil {
		s.metrics.AvailabilityReads.Inc()
	}

	result := &model.Availability{
		Date:  dateISO,
		Slots: []model.Slot{},
	}

	// Saturday and Sunday are never bookable, even if an hours entry for
	// them sneaks into the configuration.
	wd := schedule.ISOWeekday(parsed)
	if wd == 6 || wd == 7 || s.hours[wd] == nil || s.disabled.Contains(dateISO) {
		result.Disabled = true
		return result, nil
	}

	starts := schedule.Generate(parsed, s.hours, s.slotCfg)
	if len(starts) == 0 {
		result.Disabled = true
		return result, nil
	}

	dayStart := time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, s.location)
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := s.bookings.ListActiveBetween(ctx, dayStart.UTC(), dayEnd.UTC())
	if err != nil {
		s.logger.Error(err, "failed to fetch bookings for availability", "date", dateISO)
		return nil, apperrors.NewUpstreamUnavailable("booking store", err)
	}

	duration := time.Duration(s.slotCfg.DurationMin) * time.Minute
	for _, hhmm := range starts {
		minutes, err := schedule.ParseHHMM(hhmm)
		if err != nil {
			continue
		}
		// Wall-clock construction, not midnight+offset: the two differ on
		// DST transition days.
		slotStart := time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
			minutes/60, minutes%60, 0, 0, s.location)
		slotEnd := slotStart.Add(duration)

		taken := false
		for _, b := range booked {
			if schedule.Overlaps(slotStart.UTC(), slotEnd.UTC(), b.StartUTC, b.EndUTC) {
				taken = true
				break
			}
		}
		result.Slots = append(result.Slots, model.Slot{Time: hhmm, IsDisabled: taken})
	}

	return result, nil
}
