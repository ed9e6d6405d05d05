package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotwise/booking-api/internal/model"
	"github.com/slotwise/booking-api/internal/service/contact"
	"github.com/slotwise/booking-api/pkg/logger"
)

type fakeVerifier struct{ ok bool }

func (f *fakeVerifier) Verify(context.Context, string, string) (bool, error) { return f.ok, nil }

type fakeDispatcher struct{ messages []*model.NotificationMessage }

func (f *fakeDispatcher) Dispatch(_ context.Context, msg *model.NotificationMessage) error {
	f.messages = append(f.messages, msg)
	return nil
}

func setupRouter(verifier *fakeVerifier, dispatcher *fakeDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	svc := contact.NewService(verifier, dispatcher, log)

	router := gin.New()
	NewHandler(svc).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postContact(t *testing.T, router *gin.Engine, payload map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func validPayload() map[string]any {
	return map[string]any{
		"name":    "Bob",
		"email":   "bob@example.com",
		"message": "Do you take walk-ins?",
		"token":   "tok-1",
	}
}

func TestSubmitContactAccepted(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	router := setupRouter(&fakeVerifier{ok: true}, dispatcher)

	w := postContact(t, router, validPayload())
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, dispatcher.messages, 1)
}

func TestSubmitContactBadCaptchaReturns400(t *testing.T) {
	router := setupRouter(&fakeVerifier{ok: false}, &fakeDispatcher{})

	w := postContact(t, router, validPayload())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitContactMissingFieldsReturns400(t *testing.T) {
	router := setupRouter(&fakeVerifier{ok: true}, &fakeDispatcher{})

	payload := validPayload()
	delete(payload, "email")
	w := postContact(t, router, payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
