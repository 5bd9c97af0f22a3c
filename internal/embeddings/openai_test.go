package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingItem struct {
	Object    string    `json:"object"`
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingItem `json:"data"`
	Model  string          `json:"model"`
	Usage  map[string]int  `json:"usage"`
}

func writeEmbeddings(w http.ResponseWriter, vectors [][]float64, reverse bool) {
	resp := embeddingResponse{
		Object: "list",
		Model:  "test-model",
		Usage:  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
	}
	for i, vec := range vectors {
		resp.Data = append(resp.Data, embeddingItem{Object: "embedding", Index: i, Embedding: vec})
	}
	if reverse {
		for i, j := 0, len(resp.Data)-1; i < j; i, j = i+1, j-1 {
			resp.Data[i], resp.Data[j] = resp.Data[j], resp.Data[i]
		}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func newTestEmbedder(t *testing.T, url string, opts Options) *OpenAIEmbedder {
	t.Helper()
	if opts.RateLimit == 0 {
		opts.RateLimit = 1000
	}
	if opts.BackoffBase == 0 {
		opts.BackoffBase = time.Millisecond
	}
	e, err := NewOpenAIEmbedder("test-key", "test-model", opts, option.WithBaseURL(url))
	require.NoError(t, err)
	return e
}

func TestEmbedBatchSplitsIntoBatches(t *testing.T) {
	var requests []embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req)

		vectors := make([][]float64, len(req.Input))
		for i := range vectors {
			vectors[i] = []float64{float64(len(requests)), float64(i)}
		}
		writeEmbeddings(w, vectors, false)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 2})
	texts := []string{"a", "b", "c", "d", "e"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	require.Len(t, vectors, 5)
	require.Len(t, requests, 3)
	assert.Equal(t, []string{"a", "b"}, requests[0].Input)
	assert.Equal(t, []string{"c", "d"}, requests[1].Input)
	assert.Equal(t, []string{"e"}, requests[2].Input)
	// Vector for "c" came from the second call, first slot.
	assert.Equal(t, Vector{2, 0}, vectors[2])
}

func TestEmbedBatchPlacesByResponseIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Respond with embeddings out of order; index tags fix placement.
		writeEmbeddings(w, [][]float64{{0, 0}, {1, 1}, {2, 2}}, true)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 10})
	vectors, err := e.EmbedBatch(context.Background(), []string{"x", "y", "z"})
	require.NoError(t, err)

	assert.Equal(t, Vector{0, 0}, vectors[0])
	assert.Equal(t, Vector{1, 1}, vectors[1])
	assert.Equal(t, Vector{2, 2}, vectors[2])
}

func TestEmbedBatchRetriesRateLimit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}
		writeEmbeddings(w, [][]float64{{1, 2}}, false)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 10, MaxAttempts: 3})
	vectors, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, 2, calls)
}

func TestEmbedBatchFailsAfterRetryExhaustion(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 10, MaxAttempts: 3})
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "embed chunks 0-0")
}

func TestEmbedBatchDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad input","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 10, MaxAttempts: 3})
	_, err := e.EmbedBatch(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestEmbedBatchRejectsDimensionMismatch(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			writeEmbeddings(w, [][]float64{{1, 2}}, false)
			return
		}
		writeEmbeddings(w, [][]float64{{1, 2, 3}}, false)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 1})
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestEmbedBatchRejectsShortResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEmbeddings(w, [][]float64{{1, 2}}, false)
	}))
	defer srv.Close()

	e := newTestEmbedder(t, srv.URL, Options{MaxBatchSize: 10, MaxAttempts: 1})
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	e := newTestEmbedder(t, "http://unused.invalid", Options{})
	vectors, err := e.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}
