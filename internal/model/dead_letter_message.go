package model

import "time"

// DeadLetterMessage is an event delivery that exhausted its retries.
type DeadLetterMessage struct {
	ID               string    `db:"id"`
	Source           string    `db:"source"` // "pubsub" or "pgmq"
	SubscriptionName string    `db:"subscription_name"`
	MessageID        string    `db:"message_id"`
	Payload          string    `db:"payload"`
	Attributes       *string   `db:"attributes"`
	Status           string    `db:"status"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
