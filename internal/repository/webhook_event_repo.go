package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WebhookEventRepository records received Stripe events so each is processed at most once.
type WebhookEventRepository interface {
	// Claim inserts the event id and reports whether this call inserted it.
	// false means the event was already claimed by an earlier delivery.
	Claim(ctx context.Context, stripeEventID, eventType string, payload []byte) (bool, error)
	MarkProcessed(ctx context.Context, stripeEventID string) error
	// Release removes a claim after a failed attempt so Stripe's retry is processed.
	Release(ctx context.Context, stripeEventID string, cause error) error
}

type webhookEventRepo struct {
	pool *pgxpool.Pool
}

func NewWebhookEventRepo(pool *pgxpool.Pool) WebhookEventRepository {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) Claim(ctx context.Context, stripeEventID, eventType string, payload []byte) (bool, error) {
	const q = `
        INSERT INTO webhook_events (stripe_event_id, event_type, payload)
        VALUES ($1, $2, $3::jsonb)
        ON CONFLICT (stripe_event_id) DO NOTHING
        RETURNING id
    `
	var body *string
	if len(payload) > 0 {
		raw := string(payload)
		body = &raw
	}
	var id string
	err := r.pool.QueryRow(ctx, q, stripeEventID, eventType, body).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("claim webhook event %s: %w", stripeEventID, err)
	}
	return true, nil
}

func (r *webhookEventRepo) MarkProcessed(ctx context.Context, stripeEventID string) error {
	const q = `UPDATE webhook_events SET processed_at = NOW(), processing_error = NULL WHERE stripe_event_id = $1`
	if _, err := r.pool.Exec(ctx, q, stripeEventID); err != nil {
		return fmt.Errorf("mark webhook event %s processed: %w", stripeEventID, err)
	}
	return nil
}

func (r *webhookEventRepo) Release(ctx context.Context, stripeEventID string, cause error) error {
	const q = `DELETE FROM webhook_events WHERE stripe_event_id = $1 AND processed_at IS NULL`
	if _, err := r.pool.Exec(ctx, q, stripeEventID); err != nil {
		return fmt.Errorf("release webhook event %s (after %v): %w", stripeEventID, cause, err)
	}
	return nil
}
