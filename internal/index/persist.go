package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"pdfchat/internal/blob"
	"pdfchat/internal/retry"
)

const (
	uploadAttempts  = 3
	uploadBaseDelay = 500 * time.Millisecond
)

// Metadata is the index descriptor artifact, stored next to the payload.
type Metadata struct {
	Dimension int       `json:"dimension"`
	Entries   int       `json:"entries"`
	Model     string    `json:"model"`
	BuiltAt   time.Time `json:"built_at"`
}

// Persister uploads both index artifacts for a document. Uploads are
// last-writer-wins at the bucket, so a rebuild replaces the prior index
// atomically per key; success is reported only after both artifacts are
// durable.
type Persister struct {
	storage blob.Storage
	log     *slog.Logger
}

func NewPersister(storage blob.Storage, log *slog.Logger) *Persister {
	return &Persister{storage: storage, log: log}
}

func (p *Persister) Persist(ctx context.Context, idx *Index, model, userID, filename string) error {
	var payload bytes.Buffer
	if err := idx.Encode(&payload); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	meta, err := json.Marshal(Metadata{
		Dimension: idx.Dimension,
		Entries:   len(idx.Entries),
		Model:     model,
		BuiltAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode index metadata: %w", err)
	}

	payloadKey := blob.IndexPayloadKey(userID, filename)
	if err := p.upload(ctx, payloadKey, payload.Bytes(), "application/octet-stream"); err != nil {
		return fmt.Errorf("persist index payload: %w", err)
	}
	metaKey := blob.IndexMetadataKey(userID, filename)
	if err := p.upload(ctx, metaKey, meta, "application/json"); err != nil {
		return fmt.Errorf("persist index metadata: %w", err)
	}

	p.log.Info("index persisted", "payload_key", payloadKey, "entries", len(idx.Entries), "dimension", idx.Dimension)
	return nil
}

func (p *Persister) upload(ctx context.Context, key string, data []byte, contentType string) error {
	transient := func(err error) bool {
		if blob.IsPermanent(err) {
			return false
		}
		p.log.Warn("index upload failed, retrying", "key", key, "err", err)
		return true
	}
	return retry.Do(ctx, uploadAttempts, uploadBaseDelay, transient, func() error {
		return p.storage.Upload(ctx, key, bytes.NewReader(data), contentType)
	})
}
