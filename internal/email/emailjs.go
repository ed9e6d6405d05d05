package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const emailjsEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// EmailJSSender delivers through the EmailJS REST API. It is the fallback
// transport: plain text only, attachments are dropped because the template
// API has nowhere to put them.
type EmailJSSender struct {
	serviceID   string
	templateID  string
	userID      string
	accessToken string
	endpoint    string
	client      *http.Client
}

func NewEmailJSSender(serviceID, templateID, userID, accessToken string) *EmailJSSender {
	return &EmailJSSender{
		serviceID:   serviceID,
		templateID:  templateID,
		userID:      userID,
		accessToken: accessToken,
		endpoint:    emailjsEndpoint,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *EmailJSSender) Name() string { return "emailjs" }

func (s *EmailJSSender) Send(ctx context.Context, msg *Message) error {
	payload := map[string]any{
		"service_id":  s.serviceID,
		"template_id": s.templateID,
		"user_id":     s.userID,
		"template_params": map[string]string{
			"to_email":  msg.To,
			"from_name": msg.FromName,
			"subject":   msg.Subject,
			"message":   msg.Text,
		},
	}
	if s.accessToken != "" {
		payload["accessToken"] = s.accessToken
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal emailjs payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build emailjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("emailjs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("emailjs returned status %d: %s", resp.StatusCode, string(detail))
	}
	return nil
}
