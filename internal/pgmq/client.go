package pgmq

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Client wraps a Postgres pool for pgmq queue operations.
type Client struct {
	pool *pgxpool.Pool
}

// New returns a new PGMQ client backed by the given pool.
func New(pool *pgxpool.Pool) *Client {
	return &Client{pool: pool}
}

// Message represents a single pgmq message.
type Message struct {
	ID        int64  // message identifier
	ReadCount int    // deliveries so far, including this one
	Data      []byte // raw JSON payload
}

// Send pushes a JSON payload into the given queue and returns the message id.
func (c *Client) Send(ctx context.Context, queue string, payload []byte) (int64, error) {
	var id int64
	if err := c.pool.QueryRow(ctx, "SELECT pgmq.send($1, $2::jsonb, 0)", queue, string(payload)).Scan(&id); err != nil {
		return 0, fmt.Errorf("pgmq send failed: %w", err)
	}
	return id, nil
}

// ReadWithPoll reads up to maxMessages from the queue, waiting up to pollSec seconds for one to arrive.
// Read messages stay invisible for visibilitySec seconds unless deleted.
func (c *Client) ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*Message, error) {
	rows, err := c.pool.Query(ctx, "SELECT msg_id, read_ct, message FROM pgmq.read_with_poll($1, $2, $3, $4)",
		queue, visibilitySec, maxMessages, pollSec)
	if err != nil {
		return nil, fmt.Errorf("pgmq read_with_poll failed: %w", err)
	}
	defer rows.Close()

	var msgs []*Message
	for rows.Next() {
		m := &Message{}
		if err := rows.Scan(&m.ID, &m.ReadCount, &m.Data); err != nil {
			return nil, fmt.Errorf("pgmq read scan failed: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmq read rows error: %w", err)
	}
	return msgs, nil
}

// Delete removes messages by their IDs from the specified queue.
func (c *Client) Delete(ctx context.Context, queue string, msgIDs []int64) error {
	if _, err := c.pool.Exec(ctx, "SELECT pgmq.delete($1, $2::bigint[])", queue, msgIDs); err != nil {
		return fmt.Errorf("pgmq delete failed: %w", err)
	}
	return nil
}
