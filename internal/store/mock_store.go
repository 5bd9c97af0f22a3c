package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store using testify/mock.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) CreateDocument(ctx context.Context, userID, filename string) (Document, error) {
	args := m.Called(ctx, userID, filename)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) GetDocument(ctx context.Context, userID string, docID uuid.UUID) (Document, error) {
	args := m.Called(ctx, userID, docID)
	return args.Get(0).(Document), args.Error(1)
}

func (m *MockStore) DeleteDocument(ctx context.Context, userID string, docID uuid.UUID) error {
	args := m.Called(ctx, userID, docID)
	return args.Error(0)
}

func (m *MockStore) Claim(ctx context.Context, userID string, docID uuid.UUID) error {
	args := m.Called(ctx, userID, docID)
	return args.Error(0)
}

func (m *MockStore) MarkReady(ctx context.Context, userID string, docID uuid.UUID) error {
	args := m.Called(ctx, userID, docID)
	return args.Error(0)
}

func (m *MockStore) MarkFailed(ctx context.Context, userID string, docID uuid.UUID, cause string) error {
	args := m.Called(ctx, userID, docID, cause)
	return args.Error(0)
}

func (m *MockStore) AddConversation(ctx context.Context, userID string, docID uuid.UUID, convID uuid.UUID) (Conversation, error) {
	args := m.Called(ctx, userID, docID, convID)
	return args.Get(0).(Conversation), args.Error(1)
}

func (m *MockStore) ListConversations(ctx context.Context, userID string, docID uuid.UUID) ([]Conversation, error) {
	args := m.Called(ctx, userID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Conversation), args.Error(1)
}
