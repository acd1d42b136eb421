package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"checkin-service/internal/config"
	"checkin-service/internal/service"
	"checkin-service/internal/webhook"
)

const handlerTestSecret = "whsec_handler_test"

func newWebhookTestHandler() *WebhookHandler {
	cfg := &config.Config{}
	cfg.Webhook.Secret = handlerTestSecret
	cfg.Webhook.EnableSignatureValidation = true
	cfg.Webhook.MaxAgeMinutes = 5

	validator := webhook.NewValidator(cfg)
	checkIns := service.NewCheckInService(nil, nil, nil, nil)
	return NewWebhookHandler(validator, checkIns, nil)
}

func postWebhook(h *WebhookHandler, body, contentType, signature, timestamp string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhook/omnix", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", contentType)
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	if timestamp != "" {
		req.Header.Set(timestampHeader, timestamp)
	}

	rec := httptest.NewRecorder()
	h.ReceiveRecommendation(rec, req)
	return rec
}

func TestWebhookRejectsWrongContentType(t *testing.T) {
	h := newWebhookTestHandler()

	rec := postWebhook(h, "payload", "text/plain", "", "")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := newWebhookTestHandler()

	rec := postWebhook(h, `{"licensePlate":"ABC1234"}`, "application/json", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	h := newWebhookTestHandler()
	ts := time.Now().UTC().Format(time.RFC3339)

	rec := postWebhook(h, `{"licensePlate":"ABC1234"}`, "application/json", "Zm9yZ2VkCg==", ts)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	h := newWebhookTestHandler()
	ts := time.Now().UTC().Format(time.RFC3339)
	body := strings.Repeat("x", maxWebhookBody+1)

	rec := postWebhook(h, body, "application/json", "sig", ts)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestWebhookAcceptsSignedPayload(t *testing.T) {
	h := newWebhookTestHandler()

	body := `{"id":"rec-1","licensePlate":"ABC1234","stateCode":"TX"}`
	ts := time.Now().UTC().Format(time.RFC3339)

	cfg := &config.Config{}
	cfg.Webhook.Secret = handlerTestSecret
	sig := webhook.NewValidator(cfg).Sign(body, ts)

	rec := postWebhook(h, body, "application/json", sig, ts)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":true`)
}

func TestWebhookRejectsSignedButMalformedJSON(t *testing.T) {
	h := newWebhookTestHandler()

	body := `{not json`
	ts := time.Now().UTC().Format(time.RFC3339)

	cfg := &config.Config{}
	cfg.Webhook.Secret = handlerTestSecret
	sig := webhook.NewValidator(cfg).Sign(body, ts)

	rec := postWebhook(h, body, "application/json", sig, ts)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
