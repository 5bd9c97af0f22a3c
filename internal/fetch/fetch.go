package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"pdfchat/internal/blob"
	"pdfchat/internal/retry"
)

const (
	maxAttempts = 3
	baseDelay   = 500 * time.Millisecond
)

// Fetcher downloads raw document bytes into job-scoped scratch space.
type Fetcher struct {
	storage blob.Storage
	log     *slog.Logger
}

func New(storage blob.Storage, log *slog.Logger) *Fetcher {
	return &Fetcher{storage: storage, log: log}
}

// Fetch downloads the object at key into dir and returns the local path.
// Missing objects and access denials are permanent and fail immediately;
// other storage errors are retried with exponential backoff. The caller owns
// dir and is responsible for removing it on every exit path.
func (f *Fetcher) Fetch(ctx context.Context, key, dir string) (string, error) {
	dst := filepath.Join(dir, path.Base(key))

	download := func() error {
		file, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("create scratch file: %w", err)
		}
		defer file.Close()
		return f.storage.Download(ctx, key, file)
	}

	transient := func(err error) bool {
		if blob.IsPermanent(err) {
			return false
		}
		f.log.Warn("document fetch failed, retrying", "key", key, "err", err)
		return true
	}

	if err := retry.Do(ctx, maxAttempts, baseDelay, transient, download); err != nil {
		return "", fmt.Errorf("fetch %q: %w", key, err)
	}
	return dst, nil
}
