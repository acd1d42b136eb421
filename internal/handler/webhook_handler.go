package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"checkin-service/internal/client"
	"checkin-service/internal/model"
	"checkin-service/internal/service"
	"checkin-service/internal/util"
	"checkin-service/internal/webhook"
)

const (
	signatureHeader = "X-OmniX-Signature"
	timestampHeader = "X-OmniX-Timestamp"

	// Provider payloads are small; anything above this is hostile.
	maxWebhookBody = 1 << 20
)

// WebhookHandler receives recommendation pushes from the vehicle provider.
// Requests are authenticated by HMAC signature, never by session.
type WebhookHandler struct {
	validator *webhook.Validator
	checkIns  *service.CheckInService
	audit     *client.AuditProducer
}

func NewWebhookHandler(validator *webhook.Validator, checkIns *service.CheckInService, audit *client.AuditProducer) *WebhookHandler {
	return &WebhookHandler{
		validator: validator,
		checkIns:  checkIns,
		audit:     audit,
	}
}

func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/webhook/omnix", h.ReceiveRecommendation)
}

func (h *WebhookHandler) ReceiveRecommendation(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		respondWithError(w, r, http.StatusUnsupportedMediaType, "unsupported content type", "Expected application/json")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		respondWithError(w, r, http.StatusBadRequest, "unreadable body", "Unable to read request body")
		return
	}
	if len(body) > maxWebhookBody {
		respondWithError(w, r, http.StatusRequestEntityTooLarge, "payload too large", "Request body exceeds limit")
		return
	}

	signature := r.Header.Get(signatureHeader)
	timestamp := r.Header.Get(timestampHeader)

	if !h.validator.Validate(string(body), signature, timestamp) {
		h.audit.Publish(r.Context(), client.SecurityEvent{
			Type:      client.EventWebhookRejected,
			Detail:    r.RemoteAddr,
			Timestamp: time.Now().UTC(),
		})
		// Reject without detail; the reason is in the logs only
		respondWithError(w, r, http.StatusUnauthorized, "unauthenticated", "Request rejected")
		return
	}

	var rec model.ServiceRecommendation
	if err := json.Unmarshal(body, &rec); err != nil {
		respondWithError(w, r, http.StatusBadRequest, "invalid payload", "Payload must be a recommendation document")
		return
	}

	bucket, err := h.checkIns.ProcessRecommendation(r.Context(), &rec)
	if err != nil {
		util.Error("Failed to process recommendation",
			zap.String("recommendation_id", rec.ID),
			zap.Error(err))
		respondWithError(w, r, http.StatusInternalServerError, "processing failed", "Unable to process recommendation")
		return
	}

	h.audit.Publish(r.Context(), client.SecurityEvent{
		Type:      client.EventWebhookAccepted,
		Detail:    rec.ID,
		Timestamp: time.Now().UTC(),
	})

	respondWithJSON(w, http.StatusOK, successResponse(r, bucket, "Recommendation accepted"))
}
