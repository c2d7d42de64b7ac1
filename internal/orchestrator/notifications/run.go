package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dominoboard/internal/config"
	"dominoboard/internal/model"
	"dominoboard/internal/pgmq"
	"dominoboard/internal/telegram"

	"github.com/rs/zerolog"
)

var errTooManyReads = errors.New("notification redelivered past retry limit")

// Queue is the subset of the pgmq client the worker uses.
type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Send(ctx context.Context, queue string, payload []byte) (int64, error)
	Delete(ctx context.Context, queue string, ids []int64) error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.Event) error
}

type DeadLetterRecorder interface {
	RecordQueueFailure(ctx context.Context, queue, messageID string, payload []byte, cause error) error
}

type Options struct {
	Queue           string
	DeadLetterQueue string
	PollTimeoutSec  int
	PollMaxMsg      int
	MaxRetries      int
	BackoffInitial  time.Duration
	BackoffMax      time.Duration
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Queue:           cfg.NotificationQueueName,
		DeadLetterQueue: cfg.NotificationDeadLetterQueueName,
		PollTimeoutSec:  cfg.NotificationPollTimeoutSec,
		PollMaxMsg:      cfg.NotificationPollMaxMsg,
		MaxRetries:      cfg.NotificationMaxRetries,
		BackoffInitial:  time.Duration(cfg.NotificationBackoffInitialSec) * time.Second,
		BackoffMax:      time.Duration(cfg.NotificationBackoffMaxSec) * time.Second,
	}
}

// Worker drains the notification queue and delivers each event through the Dispatcher.
type Worker struct {
	queue      Queue
	dispatcher Dispatcher
	dlq        DeadLetterRecorder
	opts       Options
	logger     zerolog.Logger
	sleep      func(ctx context.Context, d time.Duration)
}

func NewWorker(queue Queue, dispatcher Dispatcher, dlq DeadLetterRecorder, opts Options, logger zerolog.Logger) *Worker {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.PollMaxMsg < 1 {
		opts.PollMaxMsg = 1
	}
	return &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		dlq:        dlq,
		opts:       opts,
		logger:     logger.With().Str("orchestrator", "notifications").Logger(),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Run polls until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Str("queue", w.opts.Queue).Msg("Starting notification orchestrator")
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Shutting down notification orchestrator")
			return nil
		default:
		}
		w.Poll(ctx)
	}
}

// Poll reads one batch from the queue and handles every message in it.
func (w *Worker) Poll(ctx context.Context) {
	// visibility outlasts the whole retry schedule so a slow message is not redelivered mid-flight
	visibility := int((w.opts.BackoffMax*time.Duration(w.opts.MaxRetries))/time.Second) + 30
	msgs, err := w.queue.ReadWithPoll(ctx, w.opts.Queue, visibility, w.opts.PollMaxMsg, w.opts.PollTimeoutSec)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error().Err(err).Msg("Error reading notification queue")
		w.sleep(ctx, time.Second)
		return
	}
	for _, msg := range msgs {
		w.handle(ctx, msg)
	}
}

func (w *Worker) handle(ctx context.Context, msg *pgmq.Message) {
	log := w.logger.With().Int64("msg_id", msg.ID).Logger()

	var ev model.Event
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		log.Error().Err(err).Msg("Failed to unmarshal event; moving to DLQ")
		w.deadLetter(ctx, msg, err)
		return
	}
	log = log.With().Str("event_type", ev.Type).Int64("telegram_id", ev.TelegramID).Logger()

	// a message read more often than it may be retried was abandoned by earlier polls
	if msg.ReadCount > w.opts.MaxRetries {
		err := fmt.Errorf("%w: read %d times", errTooManyReads, msg.ReadCount)
		log.Warn().Int("read_count", msg.ReadCount).Msg("Notification redelivered too often; moving event to DLQ")
		w.deadLetter(ctx, msg, err)
		return
	}

	backoff := w.opts.BackoffInitial
	var sendErr error
	for attempt := 1; attempt <= w.opts.MaxRetries; attempt++ {
		sendErr = w.dispatcher.Dispatch(ctx, ev)
		if sendErr == nil {
			break
		}
		if errors.Is(sendErr, telegram.ErrUndeliverable) {
			log.Warn().Err(sendErr).Msg("Recipient unreachable; dropping notification")
			w.ack(ctx, msg)
			return
		}
		if ctx.Err() != nil {
			// leave the message for redelivery after restart
			return
		}
		log.Error().Err(sendErr).Int("attempt", attempt).Msg("Notification delivery failed, retrying")
		if attempt == w.opts.MaxRetries {
			break
		}
		w.sleep(ctx, backoff)
		backoff *= 2
		if backoff > w.opts.BackoffMax {
			backoff = w.opts.BackoffMax
		}
	}

	if sendErr != nil {
		log.Warn().Int("attempts", w.opts.MaxRetries).Err(sendErr).Msg("Exhausted all notification retries; moving event to DLQ")
		w.deadLetter(ctx, msg, sendErr)
		return
	}
	w.ack(ctx, msg)
}

func (w *Worker) deadLetter(ctx context.Context, msg *pgmq.Message, cause error) {
	if w.opts.DeadLetterQueue != "" {
		if _, err := w.queue.Send(ctx, w.opts.DeadLetterQueue, msg.Data); err != nil {
			w.logger.Error().Err(err).Str("dlq", w.opts.DeadLetterQueue).Msg("Failed to send message to dead-letter queue")
		}
	}
	if err := w.dlq.RecordQueueFailure(ctx, w.opts.Queue, strconv.FormatInt(msg.ID, 10), msg.Data, cause); err != nil {
		w.logger.Error().Err(err).Msg("Failed to record dead letter")
	}
	w.ack(ctx, msg)
}

func (w *Worker) ack(ctx context.Context, msg *pgmq.Message) {
	if err := w.queue.Delete(ctx, w.opts.Queue, []int64{msg.ID}); err != nil {
		w.logger.Error().Err(err).Int64("msg_id", msg.ID).Msg("Error deleting notification message")
	}
}
