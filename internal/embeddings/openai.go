package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"pdfchat/internal/retry"
)

const defaultBatchTimeout = 60 * time.Second

// Options tunes the client's batching and retry policy.
type Options struct {
	MaxBatchSize int           // texts per API call
	MaxAttempts  int           // attempts per batch before the job fails
	RateLimit    float64       // API calls per second
	BackoffBase  time.Duration // first retry delay
}

// OpenAIEmbedder calls the OpenAI embeddings API in bounded, rate-limited
// batches. A batch that still fails after retries fails the whole request,
// so callers never see a partial vector set.
type OpenAIEmbedder struct {
	model       openai.EmbeddingModel
	client      *openai.Client
	limiter     *rate.Limiter
	batchSize   int
	maxAttempts int
	backoffBase time.Duration
}

// NewOpenAIEmbedder creates a new OpenAI embedder. Extra request options
// (base URL overrides and such) are passed through to the client. SDK-level
// retries are disabled; the retry policy lives here.
func NewOpenAIEmbedder(apiKey string, model openai.EmbeddingModel, opts Options, reqOpts ...option.RequestOption) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key required")
	}
	if model == "" {
		model = openai.EmbeddingModelTextEmbedding3Small
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 96
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 2
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	clientOpts := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, reqOpts...)
	cli := openai.NewClient(clientOpts...)
	return &OpenAIEmbedder{
		model:       model,
		client:      &cli,
		limiter:     rate.NewLimiter(rate.Limit(opts.RateLimit), 1),
		batchSize:   opts.MaxBatchSize,
		maxAttempts: opts.MaxAttempts,
		backoffBase: opts.BackoffBase,
	}, nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([]Vector, 0, len(texts))
	dim := 0

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var result []Vector
		call := func() error {
			var err error
			result, err = e.embedOnce(ctx, batch)
			return err
		}
		if err := retry.Do(ctx, e.maxAttempts, e.backoffBase, isTransient, call); err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}

		for i, vec := range result {
			if dim == 0 {
				dim = len(vec)
			}
			if len(vec) != dim {
				return nil, &Error{Err: fmt.Errorf("dimension mismatch at chunk %d: got %d, want %d", start+i, len(vec), dim)}
			}
			vectors = append(vectors, vec)
		}
	}
	return vectors, nil
}

// embedOnce issues a single API call for one batch, preserving input order.
func (e *OpenAIEmbedder) embedOnce(ctx context.Context, batch []string) ([]Vector, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, defaultBatchTimeout)
	defer cancel()

	resp, err := e.client.Embeddings.New(reqCtx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: batch,
		},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(batch) {
		return nil, &Error{Err: fmt.Errorf("got %d embeddings for %d inputs", len(resp.Data), len(batch))}
	}

	// The API tags each embedding with its input index; place by tag rather
	// than trusting response order.
	vectors := make([]Vector, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(batch) {
			return nil, &Error{Err: fmt.Errorf("embedding index %d out of range", d.Index)}
		}
		vec := make(Vector, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	for i, vec := range vectors {
		if vec == nil {
			return nil, &Error{Err: fmt.Errorf("missing embedding for input %d", i)}
		}
	}
	return vectors, nil
}

// isTransient classifies rate limiting, server errors, and network timeouts
// as retryable. Everything else is permanent.
func isTransient(err error) bool {
	var embErr *Error
	if errors.As(err, &embErr) {
		return embErr.Transient
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
