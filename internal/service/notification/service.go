package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slotwise/booking-api/internal/config"
	"github.com/slotwise/booking-api/internal/email"
	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/pkg/logger"
	"github.com/slotwise/booking-api/pkg/metrics"
)

// Service composes and delivers the emails behind a notification message.
// Delivery never blocks a booking or contact request: failures are logged
// and counted, nothing is surfaced to the client.
type Service struct {
	primary  email.Sender
	fallback email.Sender
	cfg      config.EmailConfig
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(primary, fallback email.Sender, cfg config.EmailConfig, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		logger:   log,
		metrics:  m,
	}
}

// Process delivers all emails for one notification message. It returns an
// error only when every email failed on every transport, so callers can
// decide whether to log or requeue.
func (s *Service) Process(ctx context.Context, msg *model.NotificationMessage) error {
	switch msg.Type {
	case model.NotificationTypeBooking:
		return s.processBooking(ctx, msg)
	case model.NotificationTypeContact:
		return s.processContact(ctx, msg)
	default:
		return fmt.Errorf("unknown notification type %q", msg.Type)
	}
}

func (s *Service) processBooking(ctx context.Context, msg *model.NotificationMessage) error {
	invite := email.BuildICS(email.Invite{
		UID:            msg.ID.String() + "@slotwise",
		Summary:        fmt.Sprintf("Appointment with %s", s.cfg.FromName),
		Description:    fmt.Sprintf("Appointment for %s, %d minutes.", msg.Name, msg.DurationMin),
		Start:          msg.StartUTC,
		End:            msg.EndUTC,
		OrganizerName:  s.cfg.FromName,
		OrganizerEmail: s.cfg.FromEmail,
		AttendeeEmail:  msg.Email,
	})

	confirmation := &email.Message{
		From:     s.cfg.FromEmail,
		FromName: s.cfg.FromName,
		To:       msg.Email,
		Subject:  fmt.Sprintf("Your appointment on %s", msg.StartLocal),
		Text:     s.bookingConfirmationBody(msg),
		Attachments: []email.Attachment{{
			Filename:    "appointment.ics",
			ContentType: "text/calendar; method=REQUEST",
			Content:     invite,
		}},
	}

	notice := &email.Message{
		From:     s.cfg.FromEmail,
		FromName: s.cfg.FromName,
		To:       s.cfg.NotificationEmail,
		Subject:  fmt.Sprintf("New booking: %s on %s", msg.Name, msg.StartLocal),
		Text:     s.bookingNoticeBody(msg),
	}

	var firstErr error
	if err := s.sendWithRetries(ctx, confirmation, string(msg.Type)); err != nil {
		firstErr = err
	}
	if s.cfg.NotificationEmail != "" {
		if err := s.sendWithRetries(ctx, notice, string(msg.Type)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Service) processContact(ctx context.Context, msg *model.NotificationMessage) error {
	notice := &email.Message{
		From:     s.cfg.FromEmail,
		FromName: s.cfg.FromName,
		To:       s.cfg.NotificationEmail,
		Subject:  fmt.Sprintf("Contact form: %s", msg.Name),
		Text:     s.contactNoticeBody(msg),
	}

	autoreply := &email.Message{
		From:     s.cfg.FromEmail,
		FromName: s.cfg.FromName,
		To:       msg.Email,
		Subject:  "We received your message",
		Text: fmt.Sprintf(
			"Hello %s,\n\nThank you for reaching out. We received your message and will get back to you soon.\n\n%s",
			msg.Name, s.cfg.FromName,
		),
	}

	var firstErr error
	if s.cfg.NotificationEmail != "" {
		if err := s.sendWithRetries(ctx, notice, string(msg.Type)); err != nil {
			firstErr = err
		}
	}
	if err := s.sendWithRetries(ctx, autoreply, string(msg.Type)); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// sendWithRetries attempts the primary transport with linear backoff, then
// the fallback with the same policy. The message is dropped after both
// transports are exhausted.
func (s *Service) sendWithRetries(ctx context.Context, m *email.Message, notifType string) error {
	transports := make([]email.Sender, 0, 2)
	if s.primary != nil {
		transports = append(transports, s.primary)
	}
	if s.fallback != nil {
		transports = append(transports, s.fallback)
	}
	if len(transports) == 0 {
		return fmt.Errorf("no email transport configured")
	}

	attempts := s.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for _, transport := range transports {
		for attempt := 1; attempt <= attempts; attempt++ {
			start := time.Now()
			err := transport.Send(ctx, m)
			if s.metrics != nil {
				s.metrics.EmailSendLatency.Observe(time.Since(start).Seconds())
			}
			if err == nil {
				if s.metrics != nil {
					s.metrics.NotificationsSent.WithLabelValues(notifType, transport.Name()).Inc()
				}
				return nil
			}
			lastErr = err
			s.logger.Warn("email send attempt failed",
				"transport", transport.Name(),
				"attempt", attempt,
				"to", m.To,
				"error", err.Error(),
			)
			if attempt < attempts {
				backoff := s.cfg.RetryBackoff * time.Duration(attempt)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
			}
		}
	}

	if s.metrics != nil {
		s.metrics.NotificationsFailed.WithLabelValues(notifType).Inc()
	}
	s.logger.Error(lastErr, "giving up on email delivery", "to", m.To, "subject", m.Subject)
	return fmt.Errorf("all email transports failed: %w", lastErr)
}

func (s *Service) bookingConfirmationBody(msg *model.NotificationMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", msg.Name)
	fmt.Fprintf(&b, "Your appointment is confirmed:\n\n")
	fmt.Fprintf(&b, "  When:     %s (%s)\n", msg.StartLocal, msg.Timezone)
	fmt.Fprintf(&b, "  Duration: %d minutes\n\n", msg.DurationMin)
	b.WriteString("A calendar invitation is attached.\n\n")
	b.WriteString(s.cfg.FromName + "\n")
	return b.String()
}

func (s *Service) bookingNoticeBody(msg *model.NotificationMessage) string {
	var b strings.Builder
	b.WriteString("New booking received.\n\n")
	fmt.Fprintf(&b, "  Name:     %s\n", msg.Name)
	fmt.Fprintf(&b, "  Email:    %s\n", msg.Email)
	if msg.Phone != "" {
		fmt.Fprintf(&b, "  Phone:    %s\n", msg.Phone)
	}
	fmt.Fprintf(&b, "  When:     %s (%s)\n", msg.StartLocal, msg.Timezone)
	fmt.Fprintf(&b, "  Duration: %d minutes\n", msg.DurationMin)
	fmt.Fprintf(&b, "  Booking:  %s\n", msg.BookingID)
	return b.String()
}

func (s *Service) contactNoticeBody(msg *model.NotificationMessage) string {
	var b strings.Builder
	b.WriteString("New contact form submission.\n\n")
	fmt.Fprintf(&b, "  Name:  %s\n", msg.Name)
	fmt.Fprintf(&b, "  Email: %s\n", msg.Email)
	if msg.Phone != "" {
		fmt.Fprintf(&b, "  Phone: %s\n", msg.Phone)
	}
	if msg.ClientIP != "" {
		fmt.Fprintf(&b, "  IP:    %s\n", msg.ClientIP)
	}
	fmt.Fprintf(&b, "\n%s\n", msg.Message)
	return b.String()
}
