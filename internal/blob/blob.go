package blob

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("object access denied")
)

// Storage defines interactions with the document bucket. It is abstract so
// S3 can be replaced with a compatible provider.
type Storage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	Download(ctx context.Context, key string, w io.Writer) error
	Delete(ctx context.Context, keys ...string) error
	Presign(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// IsPermanent reports whether a storage error cannot be fixed by retrying.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied)
}
