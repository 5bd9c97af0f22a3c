package embeddings

import (
	"context"
	"fmt"
	"math"
)

// Vector is a fixed-dimension embedding.
type Vector []float32

// Embedder turns ordered texts into ordered vectors, one per text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// Error is a classified embedding service failure. Transient failures are
// retried inside the client; whatever escapes it is fatal for the job.
type Error struct {
	Transient bool
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("embedding service: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// for mismatched or empty vectors.
func CosineSimilarity(a, b Vector) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
