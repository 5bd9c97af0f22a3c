package memory

import (
	"context"
	"time"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Created time.Time `json:"created"`
}

// Store holds per-session conversation history for chat replay. It is a
// collaborator of the chat flow; the ingestion pipeline never touches it.
type Store interface {
	// History returns the session's messages in insertion order. A missing
	// session yields an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]Message, error)

	Append(ctx context.Context, sessionID string, msgs ...Message) error

	DeleteSession(ctx context.Context, sessionID string) error

	Close() error
}
