package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockQueue is a mock implementation of Queue using testify/mock.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	args := m.Called(ctx, subject, data)
	return args.Error(0)
}

func (m *MockQueue) Worker(ctx context.Context, subject string, handler Handler) error {
	args := m.Called(ctx, subject, handler)
	return args.Error(0)
}
