package queue

import (
	"context"
	"time"

	"pdfchat/internal/retry"
)

// Handler processes one raw job payload. Returning an error requeues the
// payload (at-least-once delivery); returning nil acknowledges it.
type Handler func(context.Context, []byte) error

// Queue exposes a minimal contract to publish and consume job payloads.
type Queue interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Worker(ctx context.Context, subject string, handler Handler) error
}

// PublishWithRetry attempts to publish with retries and exponential backoff.
func PublishWithRetry(ctx context.Context, q Queue, subject string, data []byte, attempts int, base time.Duration) error {
	return retry.Do(ctx, attempts, base, nil, func() error {
		return q.Publish(ctx, subject, data)
	})
}
