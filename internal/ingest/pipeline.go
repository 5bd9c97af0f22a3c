package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/google/uuid"

	"pdfchat/internal/embeddings"
	"pdfchat/internal/fetch"
	"pdfchat/internal/index"
	"pdfchat/internal/parser"
	"pdfchat/internal/retry"
	"pdfchat/internal/store"
)

// Job is the queue payload produced by the upload flow.
type Job struct {
	DocumentID string `json:"documentid"`
	UserID     string `json:"user"`
	Key        string `json:"key"`

	docID uuid.UUID
}

// Pipeline drives one ingestion job end to end: claim the document, fetch
// the raw bytes, parse into ordered chunks, embed, build the vector index,
// persist both artifacts, and finalize the status. Any stage failure after
// the claim short-circuits to an ERROR status; no partial index is ever
// persisted.
type Pipeline struct {
	log       *slog.Logger
	store     store.Store
	fetcher   *fetch.Fetcher
	parsers   *parser.Registry
	embedder  embeddings.Embedder
	persister *index.Persister
	model     string
}

func NewPipeline(
	log *slog.Logger,
	st store.Store,
	fetcher *fetch.Fetcher,
	parsers *parser.Registry,
	embedder embeddings.Embedder,
	persister *index.Persister,
	model string,
) *Pipeline {
	return &Pipeline{
		log:       log,
		store:     st,
		fetcher:   fetcher,
		parsers:   parsers,
		embedder:  embedder,
		persister: persister,
		model:     model,
	}
}

// HandleJob consumes one raw queue payload. It returns nil for every
// outcome the queue should acknowledge: success, malformed payloads, claim
// conflicts, and permanent failures that were recorded on the document.
// Only infrastructure errors around the claim itself propagate so the queue
// redelivers.
func (p *Pipeline) HandleJob(ctx context.Context, payload []byte) error {
	job, err := decodeJob(payload)
	if err != nil {
		// Malformed jobs are dropped without touching any document status.
		p.log.Error("dropping malformed job", "err", err)
		return nil
	}
	log := p.log.With("document_id", job.DocumentID, "user_id", job.UserID)

	if err := p.store.Claim(ctx, job.UserID, job.docID); err != nil {
		switch {
		case errors.Is(err, store.ErrClaimConflict):
			// Another worker holds this document; redelivery resolved.
			log.Debug("claim conflict, skipping job")
			return nil
		case errors.Is(err, store.ErrNotFound):
			// Document deleted between upload and processing.
			log.Warn("dropping job for missing document")
			return nil
		default:
			return fmt.Errorf("claim document: %w", err)
		}
	}

	if err := p.process(ctx, job); err != nil {
		log.Error("ingestion failed", "err", err)
		p.finalize(ctx, log, func() error {
			return p.store.MarkFailed(ctx, job.UserID, job.docID, err.Error())
		})
		return nil
	}

	p.finalize(ctx, log, func() error {
		return p.store.MarkReady(ctx, job.UserID, job.docID)
	})
	log.Info("document ready")
	return nil
}

// process runs the claimed job's stages strictly in sequence. Scratch space
// is released on every exit path.
func (p *Pipeline) process(ctx context.Context, job Job) error {
	scratch, err := os.MkdirTemp("", "ingest-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	local, err := p.fetcher.Fetch(ctx, job.Key, scratch)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("read fetched document: %w", err)
	}

	filename := path.Base(job.Key)
	docParser, err := p.parsers.ForDocument(filename, data)
	if err != nil {
		return err
	}
	chunks, err := docParser.Parse(data)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	builder := index.NewBuilder(0)
	for i, c := range chunks {
		if err := builder.Add(c, vectors[i]); err != nil {
			return fmt.Errorf("build index: %w", err)
		}
	}
	idx, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}

	return p.persister.Persist(ctx, idx, p.model, job.UserID, filename)
}

// finalize records the terminal status. The status write is retried locally
// because redelivery cannot help once this worker holds the claim.
func (p *Pipeline) finalize(ctx context.Context, log *slog.Logger, update func() error) {
	err := retry.Do(ctx, 3, 200*time.Millisecond, func(err error) bool {
		return !errors.Is(err, store.ErrNotFound)
	}, update)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Error("failed to finalize document status", "err", err)
	}
}

func decodeJob(payload []byte) (Job, error) {
	var job Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return Job{}, fmt.Errorf("decode job payload: %w", err)
	}
	if job.UserID == "" || job.Key == "" {
		return Job{}, fmt.Errorf("job missing user or key")
	}
	id, err := uuid.Parse(job.DocumentID)
	if err != nil {
		return Job{}, fmt.Errorf("invalid document id %q: %w", job.DocumentID, err)
	}
	job.docID = id
	return job, nil
}
