package premiumsweep

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	calls  atomic.Int32
	err    error
	cancel context.CancelFunc
	stopAt int32
}

func (s *countingSweeper) SweepExpired(ctx context.Context) (int, error) {
	n := s.calls.Add(1)
	if n >= s.stopAt {
		s.cancel()
	}
	return 1, s.err
}

func TestRunSweepsUntilCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &countingSweeper{cancel: cancel, stopAt: 3}

	done := make(chan error, 1)
	go func() { done <- Run(ctx, zerolog.Nop(), s, time.Millisecond) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("sweep did not stop")
	}
	assert.GreaterOrEqual(t, s.calls.Load(), int32(3))
}

func TestRunKeepsGoingAfterError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &countingSweeper{cancel: cancel, stopAt: 2, err: errors.New("db down")}

	require.NoError(t, Run(ctx, zerolog.Nop(), s, time.Millisecond))
	assert.GreaterOrEqual(t, s.calls.Load(), int32(2))
}
