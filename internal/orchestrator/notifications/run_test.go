package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"dominoboard/internal/model"
	"dominoboard/internal/pgmq"
	"dominoboard/internal/telegram"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQueue struct {
	batch   []*pgmq.Message
	readErr error
	sent    map[string][][]byte
	deleted []int64
}

func (q *fakeQueue) ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error) {
	if q.readErr != nil {
		return nil, q.readErr
	}
	b := q.batch
	q.batch = nil
	return b, nil
}

func (q *fakeQueue) Send(ctx context.Context, queue string, payload []byte) (int64, error) {
	if q.sent == nil {
		q.sent = map[string][][]byte{}
	}
	q.sent[queue] = append(q.sent[queue], payload)
	return int64(len(q.sent[queue])), nil
}

func (q *fakeQueue) Delete(ctx context.Context, queue string, ids []int64) error {
	q.deleted = append(q.deleted, ids...)
	return nil
}

type scriptedDispatcher struct {
	errs  []error
	calls int
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, ev model.Event) error {
	d.calls++
	if d.calls <= len(d.errs) {
		return d.errs[d.calls-1]
	}
	return nil
}

type deadLetter struct {
	queue, id string
	cause     error
}

type fakeRecorder struct{ got []deadLetter }

func (r *fakeRecorder) RecordQueueFailure(ctx context.Context, queue, messageID string, payload []byte, cause error) error {
	r.got = append(r.got, deadLetter{queue: queue, id: messageID, cause: cause})
	return nil
}

func newTestWorker(q *fakeQueue, d *scriptedDispatcher, r *fakeRecorder) (*Worker, *[]time.Duration) {
	w := NewWorker(q, d, r, Options{
		Queue:           "notifications",
		DeadLetterQueue: "notifications_dlq",
		PollMaxMsg:      10,
		MaxRetries:      4,
		BackoffInitial:  time.Second,
		BackoffMax:      3 * time.Second,
	}, zerolog.Nop())
	var waits []time.Duration
	w.sleep = func(ctx context.Context, d time.Duration) { waits = append(waits, d) }
	return w, &waits
}

func eventMessage(t *testing.T, id int64) *pgmq.Message {
	t.Helper()
	data, err := json.Marshal(model.NewEvent(model.EventStatsVerified, 42, map[string]string{"platform_id": "1"}))
	require.NoError(t, err)
	return &pgmq.Message{ID: id, Data: data}
}

func TestPollDeliversAndAcks(t *testing.T) {
	q := &fakeQueue{}
	q.batch = []*pgmq.Message{eventMessage(t, 1), eventMessage(t, 2)}
	d := &scriptedDispatcher{}
	r := &fakeRecorder{}
	w, waits := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Equal(t, 2, d.calls)
	assert.Equal(t, []int64{1, 2}, q.deleted)
	assert.Empty(t, *waits)
	assert.Empty(t, r.got)
}

func TestPollRetriesWithBackoff(t *testing.T) {
	q := &fakeQueue{}
	q.batch = []*pgmq.Message{eventMessage(t, 7)}
	transient := errors.New("timeout")
	d := &scriptedDispatcher{errs: []error{transient, transient}}
	r := &fakeRecorder{}
	w, waits := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Equal(t, 3, d.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *waits)
	assert.Equal(t, []int64{7}, q.deleted)
	assert.Empty(t, r.got)
}

func TestPollMovesExhaustedMessageToDeadLetters(t *testing.T) {
	q := &fakeQueue{}
	msg := eventMessage(t, 9)
	q.batch = []*pgmq.Message{msg}
	boom := errors.New("telegram 500")
	d := &scriptedDispatcher{errs: []error{boom, boom, boom, boom}}
	r := &fakeRecorder{}
	w, waits := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Equal(t, 4, d.calls)
	// capped at BackoffMax
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, *waits)
	require.Len(t, q.sent["notifications_dlq"], 1)
	assert.JSONEq(t, string(msg.Data), string(q.sent["notifications_dlq"][0]))
	require.Len(t, r.got, 1)
	assert.Equal(t, "notifications", r.got[0].queue)
	assert.Equal(t, "9", r.got[0].id)
	assert.ErrorIs(t, r.got[0].cause, boom)
	assert.Equal(t, []int64{9}, q.deleted)
}

func TestPollDropsUndeliverable(t *testing.T) {
	q := &fakeQueue{}
	q.batch = []*pgmq.Message{eventMessage(t, 3)}
	d := &scriptedDispatcher{errs: []error{fmt.Errorf("notify: %w", telegram.ErrUndeliverable)}}
	r := &fakeRecorder{}
	w, _ := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Equal(t, 1, d.calls)
	assert.Equal(t, []int64{3}, q.deleted)
	assert.Empty(t, r.got)
	assert.Empty(t, q.sent)
}

func TestPollDeadLettersMalformedPayload(t *testing.T) {
	q := &fakeQueue{}
	q.batch = []*pgmq.Message{{ID: 5, Data: []byte("not json")}}
	d := &scriptedDispatcher{}
	r := &fakeRecorder{}
	w, _ := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Zero(t, d.calls)
	require.Len(t, r.got, 1)
	assert.Equal(t, "5", r.got[0].id)
	assert.Equal(t, []int64{5}, q.deleted)
}

func TestPollDeadLettersOverReadMessage(t *testing.T) {
	q := &fakeQueue{}
	fresh := eventMessage(t, 11)
	fresh.ReadCount = 4
	stale := eventMessage(t, 12)
	stale.ReadCount = 5
	q.batch = []*pgmq.Message{fresh, stale}
	d := &scriptedDispatcher{}
	r := &fakeRecorder{}
	w, waits := newTestWorker(q, d, r)

	w.Poll(context.Background())

	assert.Equal(t, 1, d.calls)
	assert.Empty(t, *waits)
	require.Len(t, r.got, 1)
	assert.Equal(t, "12", r.got[0].id)
	assert.ErrorIs(t, r.got[0].cause, errTooManyReads)
	require.Len(t, q.sent["notifications_dlq"], 1)
	assert.JSONEq(t, string(stale.Data), string(q.sent["notifications_dlq"][0]))
	assert.Equal(t, []int64{11, 12}, q.deleted)
}

func TestPollBacksOffOnReadError(t *testing.T) {
	q := &fakeQueue{readErr: errors.New("connection refused")}
	w, waits := newTestWorker(q, &scriptedDispatcher{}, &fakeRecorder{})

	w.Poll(context.Background())

	assert.Equal(t, []time.Duration{time.Second}, *waits)
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w, _ := newTestWorker(&fakeQueue{}, &scriptedDispatcher{}, &fakeRecorder{})
	assert.NoError(t, w.Run(ctx))
}
