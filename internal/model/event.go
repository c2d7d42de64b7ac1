package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventStatsVerified        = "stats.verified"
	EventStatsDisputed        = "stats.disputed"
	EventPremiumActivated     = "premium.activated"
	EventPremiumExpired       = "premium.expired"
	EventSubscriptionCanceled = "subscription.canceled"
	EventSubscriptionPastDue  = "subscription.past_due"
	EventVerifiedBadgeGranted = "user.verified_badge"
)

// Event is a domain event fanned out to the notification worker.
type Event struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	TelegramID int64             `json:"telegram_id"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

func NewEvent(eventType string, telegramID int64, data map[string]string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TelegramID: telegramID,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
