package repository

import (
	"context"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DLQRepository stores event deliveries that exhausted their retries.
type DLQRepository interface {
	Create(ctx context.Context, message *model.DeadLetterMessage) error
	ListUnprocessed(ctx context.Context, limit int) ([]*model.DeadLetterMessage, error)
}

type dlqRepository struct {
	pool *pgxpool.Pool
}

func NewDLQRepository(pool *pgxpool.Pool) DLQRepository {
	return &dlqRepository{pool: pool}
}

func (r *dlqRepository) Create(ctx context.Context, message *model.DeadLetterMessage) error {
	const q = `
        INSERT INTO dead_letter_messages (source, subscription_name, message_id, payload, attributes, status)
        VALUES ($1, $2, $3, $4, $5::jsonb, $6)
        RETURNING id, created_at, updated_at
    `
	err := r.pool.QueryRow(ctx, q,
		message.Source,
		message.SubscriptionName,
		message.MessageID,
		message.Payload,
		message.Attributes,
		message.Status,
	).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert dead letter %s: %w", message.MessageID, err)
	}
	return nil
}

func (r *dlqRepository) ListUnprocessed(ctx context.Context, limit int) ([]*model.DeadLetterMessage, error) {
	const q = `
        SELECT id, source, subscription_name, message_id, payload, attributes::text, status, created_at, updated_at
        FROM dead_letter_messages
        WHERE status = 'unprocessed'
        ORDER BY created_at DESC
        LIMIT $1
    `
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	var out []*model.DeadLetterMessage
	for rows.Next() {
		var m model.DeadLetterMessage
		if err := rows.Scan(&m.ID, &m.Source, &m.SubscriptionName, &m.MessageID, &m.Payload,
			&m.Attributes, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dead letter: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
