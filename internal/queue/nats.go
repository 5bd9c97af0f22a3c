package queue

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"pdfchat/internal/retry"
)

const (
	headerAttempts  = "Job-Attempts"
	headerNotBefore = "Job-Not-Before"

	maxDeliveries = 5
)

// NewNATS constructs a thin NATS-based queue. Workers join a queue group per
// subject so each payload is handled by a single worker, though delivery
// remains at-least-once.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
}

func (q *natsQueue) Publish(_ context.Context, subject string, data []byte) error {
	return q.nc.Publish(subject, data)
}

func (q *natsQueue) Worker(ctx context.Context, subject string, handler Handler) error {
	group := "workers-" + subject
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		q.handleMessage(ctx, msg, handler)
	})
	if err != nil {
		return err
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) handleMessage(ctx context.Context, msg *nats.Msg, handler Handler) {
	if nb := msg.Header.Get(headerNotBefore); nb != "" {
		if t, err := time.Parse(time.RFC3339Nano, nb); err == nil && t.After(time.Now()) {
			time.Sleep(time.Until(t))
		}
	}

	if err := handler(ctx, msg.Data); err != nil {
		q.requeue(msg, err)
	}
}

// requeue re-publishes a failed payload with an incremented attempt header
// and a backoff delay, dropping it once deliveries are exhausted.
func (q *natsQueue) requeue(msg *nats.Msg, handlerErr error) {
	attempts, _ := strconv.Atoi(msg.Header.Get(headerAttempts))
	attempts++
	if attempts >= maxDeliveries {
		q.log.Error("job permanently failed", "subject", msg.Subject, "attempts", attempts, "err", handlerErr)
		return
	}

	next := nats.NewMsg(msg.Subject)
	next.Data = msg.Data
	next.Header.Set(headerAttempts, strconv.Itoa(attempts))
	next.Header.Set(headerNotBefore, time.Now().Add(retry.ExponentialBackoff(attempts, time.Second)).Format(time.RFC3339Nano))
	if err := q.nc.PublishMsg(next); err != nil {
		q.log.Error("failed to requeue job after failure", "subject", msg.Subject, "original_err", handlerErr, "publish_err", err)
	}
}
