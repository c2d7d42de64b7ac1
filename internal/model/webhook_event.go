package model

import "time"

// WebhookEvent is the idempotency record of a received Stripe event.
type WebhookEvent struct {
	ID              string     `db:"id"`
	StripeEventID   string     `db:"stripe_event_id"`
	EventType       string     `db:"event_type"`
	Payload         []byte     `db:"payload"`
	ProcessedAt     *time.Time `db:"processed_at"`
	ProcessingError *string    `db:"processing_error"`
	CreatedAt       time.Time  `db:"created_at"`
}
