// Package contact handles contact form submissions: captcha verification
// and handoff to the notification pipeline.
package contact

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/captcha"
	"github.com/slotwise/booking-api/internal/service/notification"
	apperrors "github.com/slotwise/booking-api/pkg/errors"
	"github.com/slotwise/booking-api/pkg/logger"
)

const maxMessageLen = 5000

type Service struct {
	verifier   captcha.Verifier
	dispatcher notification.Dispatcher
	logger     *logger.Logger
}

func NewService(verifier captcha.Verifier, dispatcher notification.Dispatcher, log *logger.Logger) *Service {
	return &Service{
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Submit verifies the captcha token and hands the message off for delivery.
// Acceptance means queued, not delivered.
func (s *Service) Submit(ctx context.Context, req *model.ContactRequest, clientIP string) error {
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewInvalidInput("message must not be empty", nil)
	}
	if len(req.Message) > maxMessageLen {
		return apperrors.NewInvalidInput("message too long", nil)
	}

	ok, err := s.verifier.Verify(ctx, req.Token, clientIP)
	if err != nil {
		s.logger.Error(err, "captcha verification unavailable", "client_ip", clientIP)
		return apperrors.NewUpstreamUnavailable("captcha verification", err)
	}
	if !ok {
		return apperrors.NewInvalidInput("captcha verification failed", nil)
	}

	msg := &model.NotificationMessage{
		ID:        uuid.New(),
		Type:      model.NotificationTypeContact,
		CreatedAt: time.Now().UTC(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Message:   req.Message,
		ClientIP:  clientIP,
	}
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		s.logger.Error(err, "failed to dispatch contact notification")
		return apperrors.NewInternal(err)
	}

	s.logger.Info("contact form accepted", "client_ip", clientIP)
	return nil
}
