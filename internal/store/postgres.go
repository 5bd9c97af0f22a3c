package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock prevents concurrent migrations when the gateway and the
	// ingest worker start at the same time.
	const lockID = 427153968

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	if !acquired {
		// Another service is running migrations; wait briefly and skip.
		time.Sleep(2 * time.Second)
		return nil
	}
	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			user_id TEXT NOT NULL,
			document_id UUID NOT NULL,
			filename TEXT NOT NULL,
			docstatus TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ DEFAULT now(),
			PRIMARY KEY (user_id, document_id)
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			document_id UUID NOT NULL,
			created TIMESTAMPTZ DEFAULT now(),
			FOREIGN KEY (user_id, document_id)
				REFERENCES documents(user_id, document_id) ON DELETE CASCADE
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreateDocument(ctx context.Context, userID, filename string) (Document, error) {
	doc := Document{
		UserID:     userID,
		DocumentID: uuid.New(),
		Filename:   filename,
		Status:     StatusUploaded,
		CreatedAt:  time.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents(user_id, document_id, filename, docstatus) VALUES($1,$2,$3,$4)`,
		doc.UserID, doc.DocumentID, doc.Filename, doc.Status)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, userID string, docID uuid.UUID) (Document, error) {
	doc := Document{UserID: userID, DocumentID: docID}
	row := s.db.QueryRowContext(ctx,
		`SELECT filename, docstatus, error_message, created_at FROM documents WHERE user_id=$1 AND document_id=$2`,
		userID, docID)
	if err := row.Scan(&doc.Filename, &doc.Status, &doc.ErrorMessage, &doc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, userID string, docID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE user_id=$1 AND document_id=$2`, userID, docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim is the compare-and-swap that grants one worker exclusive rights to
// process a document. The precondition rejects documents that are already
// PROCESSING, so exactly one of two racing workers wins.
func (s *PostgresStore) Claim(ctx context.Context, userID string, docID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET docstatus=$1, error_message=''
		 WHERE user_id=$2 AND document_id=$3 AND docstatus <> $1`,
		StatusProcessing, userID, docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// Zero rows: either the document is gone or another worker owns it.
	if _, err := s.GetDocument(ctx, userID, docID); err != nil {
		return err
	}
	return ErrClaimConflict
}

func (s *PostgresStore) MarkReady(ctx context.Context, userID string, docID uuid.UUID) error {
	return s.setStatus(ctx, userID, docID, StatusReady, "")
}

func (s *PostgresStore) MarkFailed(ctx context.Context, userID string, docID uuid.UUID, cause string) error {
	return s.setStatus(ctx, userID, docID, StatusError, cause)
}

func (s *PostgresStore) setStatus(ctx context.Context, userID string, docID uuid.UUID, status DocumentStatus, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET docstatus=$1, error_message=$2 WHERE user_id=$3 AND document_id=$4`,
		status, cause, userID, docID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AddConversation(ctx context.Context, userID string, docID uuid.UUID, convID uuid.UUID) (Conversation, error) {
	conv := Conversation{ID: convID, Created: time.Now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations(id, user_id, document_id, created) VALUES($1,$2,$3,$4)`,
		conv.ID, userID, docID, conv.Created)
	if err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// ListConversations returns conversations newest first, matching the order
// the document read API exposes.
func (s *PostgresStore) ListConversations(ctx context.Context, userID string, docID uuid.UUID) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created FROM conversations WHERE user_id=$1 AND document_id=$2 ORDER BY created DESC`,
		userID, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.Created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
