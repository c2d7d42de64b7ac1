package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/model"
	"dominoboard/internal/service"
	"dominoboard/internal/telegram"

	"github.com/rs/zerolog"
)

// InternalHandler receives Pub/Sub push deliveries: domain events and dead letters.
type InternalHandler struct {
	notifications service.NotificationService
	dlq           service.DLQService
	logger        zerolog.Logger
}

func NewInternalHandler(notifications service.NotificationService, dlq service.DLQService, logger zerolog.Logger) *InternalHandler {
	return &InternalHandler{notifications: notifications, dlq: dlq, logger: logger.With().Str("handler", "internal").Logger()}
}

// RegisterRoutes mounts the push endpoints behind pubsubMw and the dead-letter listing behind adminMw.
func (h *InternalHandler) RegisterRoutes(mux *http.ServeMux, pubsubMw, adminMw func(http.Handler) http.Handler) {
	mux.Handle("/internal/events", pubsubMw(http.HandlerFunc(h.events)))
	mux.Handle("/internal/dead-letters", pubsubMw(http.HandlerFunc(h.recordDeadLetter)))
	mux.Handle("/admin/dead-letters", adminMw(http.HandlerFunc(h.listDeadLetters)))
}

// events godoc
// @Summary Pub/Sub push endpoint for domain events
// @Description Non-2xx responses make Pub/Sub redeliver. Undeliverable notifications are acknowledged.
// @Tags internal
// @Accept json
// @Success 204
// @Router /internal/events [post]
func (h *InternalHandler) events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push request")
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Message.Data)
	if err != nil {
		writeError(w, http.StatusBadRequest, "message data is not base64")
		return
	}
	var ev model.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "message data is not an event")
		return
	}

	err = h.notifications.Dispatch(r.Context(), ev)
	switch {
	case err == nil:
	case errors.Is(err, telegram.ErrUndeliverable):
		h.logger.Warn().Err(err).Str("message_id", req.Message.MessageID).Msg("Notification undeliverable; acknowledging")
	default:
		h.logger.Error().Err(err).Str("message_id", req.Message.MessageID).Msg("Failed to dispatch event")
		writeError(w, http.StatusInternalServerError, "dispatch failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InternalHandler) recordDeadLetter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	var req dto.PubSubPushRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push request")
		return
	}
	if req.Message.MessageID == "" {
		writeError(w, http.StatusBadRequest, "Invalid Pub/Sub message format: missing message ID")
		return
	}

	h.logger.Info().
		Str("messageId", req.Message.MessageID).
		Str("subscription", req.Subscription).
		Msg("Processing dead-letter queue message")

	if err := h.dlq.ProcessAndSave(r.Context(), &req); err != nil {
		// the message is already dead-lettered; acknowledge so Pub/Sub stops retrying
		h.logger.Error().Err(err).Msg("Failed to save DLQ message to database")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *InternalHandler) listDeadLetters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	msgs, err := h.dlq.ListUnprocessed(r.Context(), limit)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list dead letters")
		return
	}
	if msgs == nil {
		msgs = []*model.DeadLetterMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}
