package service

import (
	"context"
	"encoding/json"

	"dominoboard/internal/model"
	"dominoboard/internal/pubsub"

	"github.com/rs/zerolog"
)

// EventEmitter publishes domain events. Publishing is best effort: a failure
// is logged and never fails the operation that produced the event.
type EventEmitter struct {
	pub    pubsub.Publisher
	topic  string
	logger zerolog.Logger
}

func NewEventEmitter(pub pubsub.Publisher, topic string, logger zerolog.Logger) *EventEmitter {
	return &EventEmitter{pub: pub, topic: topic, logger: logger.With().Str("component", "EventEmitter").Logger()}
}

func (e *EventEmitter) Emit(ctx context.Context, ev model.Event) {
	if e == nil || e.pub == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", ev.Type).Msg("Failed to marshal event")
		return
	}
	msgID, err := e.pub.Publish(ctx, e.topic, payload)
	if err != nil {
		e.logger.Error().Err(err).Str("event_type", ev.Type).Int64("telegram_id", ev.TelegramID).Msg("Failed to publish event")
		return
	}
	e.logger.Debug().Str("event_type", ev.Type).Str("message_id", msgID).Msg("Event published")
}
