package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"dominoboard/internal/service"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

const maxWebhookBody = 65536

// WebhookProcessor verifies and applies Stripe webhook events.
type WebhookProcessor interface {
	VerifyEvent(payload []byte, signature string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type WebhookHandler struct {
	processor WebhookProcessor
	logger    zerolog.Logger
}

func NewWebhookHandler(processor WebhookProcessor, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger.With().Str("handler", "webhook").Logger()}
}

// RegisterRoutes mounts the Stripe webhook. Stripe authenticates with its signature, not init data.
func (h *WebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/webhook-handlers/stripe", h.Stripe)
}

// Stripe godoc
// @Summary Stripe webhook receiver
// @Description Replayed events are acknowledged without reprocessing.
// @Tags webhooks
// @Accept json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {string} string "ok"
// @Failure 400 {object} map[string]string "invalid signature or payload"
// @Failure 500 {object} map[string]string "processing failed"
// @Router /webhook-handlers/stripe [post]
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to read Stripe webhook payload")
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}
	event, err := h.processor.VerifyEvent(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		h.logger.Warn().Err(err).Msg("Signature verification failed for Stripe webhook")
		writeError(w, http.StatusBadRequest, "signature verification failed")
		return
	}

	err = h.processor.HandleEvent(r.Context(), event)
	switch {
	case err == nil, errors.Is(err, service.ErrDuplicateEvent):
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, service.ErrInvalidPayload):
		writeError(w, http.StatusBadRequest, "invalid event payload")
	default:
		h.logger.Error().Err(err).Str("event_id", event.ID).Msg("Stripe webhook processing failed")
		writeError(w, http.StatusInternalServerError, "processing failed")
	}
}
