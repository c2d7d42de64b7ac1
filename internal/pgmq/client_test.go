package pgmq

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReadDelete(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set, skip pgmq integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS pgmq"); err != nil {
		t.Skipf("pgmq extension unavailable: %v", err)
	}
	queue := "pgmq_client_test"
	_, err = pool.Exec(ctx, "SELECT pgmq.create($1)", queue)
	require.NoError(t, err)

	c := New(pool)
	id, err := c.Send(ctx, queue, []byte(`{"type":"stats.verified"}`))
	require.NoError(t, err)
	assert.Positive(t, id)

	msgs, err := c.ReadWithPoll(ctx, queue, 30, 1, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, id, msgs[0].ID)
	assert.Equal(t, 1, msgs[0].ReadCount)
	assert.JSONEq(t, `{"type":"stats.verified"}`, string(msgs[0].Data))

	require.NoError(t, c.Delete(ctx, queue, []int64{id}))
}
