package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "UPLOADED"
	StatusProcessing DocumentStatus = "PROCESSING"
	StatusReady      DocumentStatus = "READY"
	StatusError      DocumentStatus = "ERROR"
)

var (
	ErrNotFound = errors.New("document not found")

	// ErrClaimConflict means another worker already holds the document in
	// PROCESSING. It is an expected outcome of at-least-once delivery, not
	// a failure.
	ErrClaimConflict = errors.New("document already being processed")
)

// Document is the per-user document record. Status is written only by the
// ingestion pipeline once the record exists.
type Document struct {
	UserID       string
	DocumentID   uuid.UUID
	Filename     string
	Status       DocumentStatus
	ErrorMessage string
	CreatedAt    time.Time
}

// Conversation is a chat session attached to a document.
type Conversation struct {
	ID      uuid.UUID
	Created time.Time
}

// Store defines the document record contract. Records are keyed by
// (userID, documentID).
type Store interface {
	CreateDocument(ctx context.Context, userID, filename string) (Document, error)
	GetDocument(ctx context.Context, userID string, docID uuid.UUID) (Document, error)
	DeleteDocument(ctx context.Context, userID string, docID uuid.UUID) error

	// Claim conditionally transitions the document to PROCESSING. It fails
	// with ErrClaimConflict when the document is already PROCESSING, which
	// is how redelivered jobs are resolved between workers.
	Claim(ctx context.Context, userID string, docID uuid.UUID) error
	MarkReady(ctx context.Context, userID string, docID uuid.UUID) error
	MarkFailed(ctx context.Context, userID string, docID uuid.UUID, cause string) error

	AddConversation(ctx context.Context, userID string, docID uuid.UUID, convID uuid.UUID) (Conversation, error)
	ListConversations(ctx context.Context, userID string, docID uuid.UUID) ([]Conversation, error)
}
