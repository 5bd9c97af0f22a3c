package blob

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock implementation of Storage using testify/mock.
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *MockStorage) Download(ctx context.Context, key string, w io.Writer) error {
	args := m.Called(ctx, key, w)
	return args.Error(0)
}

func (m *MockStorage) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockStorage) Presign(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}
