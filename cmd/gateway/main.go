package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pdfchat/internal/app"
	"pdfchat/internal/blob"
	"pdfchat/internal/httputil"
	"pdfchat/internal/ingest"
	"pdfchat/internal/queue"
	"pdfchat/internal/store"
)

const presignExpiry = time.Hour

func main() {
	deps, err := app.BuildGateway(context.Background())
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	r := httputil.NewRouter(deps.Log)

	r.Post("/api/documents", uploadHandler(deps))
	r.Get("/api/documents/{documentid}", getDocumentHandler(deps))
	r.Get("/api/documents/{documentid}/conversations/{conversationid}", getConversationHandler(deps))
	r.Post("/api/documents/{documentid}/conversations", addConversationHandler(deps))
	r.Delete("/api/documents/{documentid}", deleteDocumentHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	deps.Log.Info("gateway listening", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		deps.Log.Error("server failed", "err", err)
	}
}

// userID reads the identity injected by the upstream authorizer. Token
// validation happens before requests reach this service.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := userID(r)
		if user == "" {
			httputil.Fail(deps.Log, w, "missing user identity", nil, http.StatusUnauthorized)
			return
		}

		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()
		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		filename := filepath.Base(header.Filename)
		contentType, ok := allowedContentType(filename)
		if !ok {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF, TXT and MD allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		key := blob.RawKey(user, filename)
		if err := deps.Storage.Upload(ctx, key, bytes.NewReader(content), contentType); err != nil {
			httputil.Fail(deps.Log, w, "failed to store document", err, http.StatusInternalServerError)
			return
		}

		doc, err := deps.Store.CreateDocument(ctx, user, filename)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to persist document record", err, http.StatusInternalServerError)
			return
		}

		job, err := json.Marshal(ingest.Job{
			DocumentID: doc.DocumentID.String(),
			UserID:     user,
			Key:        key,
		})
		if err != nil {
			fail(deps, ctx, w, "marshal job failed", err, doc, http.StatusInternalServerError)
			return
		}
		if err := queue.PublishWithRetry(ctx, deps.Queue, deps.Config.QueueSubject, job, 3, 200*time.Millisecond); err != nil {
			fail(deps, ctx, w, "failed to enqueue document; please retry", err, doc, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{
			"documentid": doc.DocumentID.String(),
			"filename":   doc.Filename,
			"docstatus":  doc.Status,
		})
	}
}

// fail is the gateway error handler for paths where the record already
// exists and should be marked failed.
func fail(deps app.Deps, ctx context.Context, w http.ResponseWriter, message string, err error, doc store.Document, status int) {
	log := deps.Log.With("document_id", doc.DocumentID)
	if upErr := deps.Store.MarkFailed(ctx, doc.UserID, doc.DocumentID, message); upErr != nil {
		log.Error("failed to mark document failed", "err", upErr)
	}
	httputil.Fail(log, w, message, err, status)
}

func getDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := userID(r)
		if user == "" {
			httputil.Fail(deps.Log, w, "missing user identity", nil, http.StatusUnauthorized)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "documentid"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}

		doc, convs, url, err := loadDocument(ctx, deps, user, docID)
		if err != nil {
			writeStoreError(deps, w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"document":      documentResponse(doc),
			"conversations": conversationsResponse(convs),
			"url":           url,
		})
	}
}

func getConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := userID(r)
		if user == "" {
			httputil.Fail(deps.Log, w, "missing user identity", nil, http.StatusUnauthorized)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "documentid"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		convID := chi.URLParam(r, "conversationid")

		doc, convs, url, err := loadDocument(ctx, deps, user, docID)
		if err != nil {
			writeStoreError(deps, w, err)
			return
		}
		messages, err := deps.Memory.History(ctx, convID)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to load conversation history", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"conversationid": convID,
			"document":       documentResponse(doc),
			"conversations":  conversationsResponse(convs),
			"messages":       messages,
			"url":            url,
		})
	}
}

func addConversationHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := userID(r)
		if user == "" {
			httputil.Fail(deps.Log, w, "missing user identity", nil, http.StatusUnauthorized)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "documentid"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}
		if _, err := deps.Store.GetDocument(ctx, user, docID); err != nil {
			writeStoreError(deps, w, err)
			return
		}

		conv, err := deps.Store.AddConversation(ctx, user, docID, uuid.New())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create conversation", err, http.StatusInternalServerError)
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, map[string]any{
			"conversationid": conv.ID.String(),
			"created":        conv.Created,
		})
	}
}

func deleteDocumentHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		user := userID(r)
		if user == "" {
			httputil.Fail(deps.Log, w, "missing user identity", nil, http.StatusUnauthorized)
			return
		}
		docID, err := uuid.Parse(chi.URLParam(r, "documentid"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid document id", err, http.StatusBadRequest)
			return
		}

		doc, err := deps.Store.GetDocument(ctx, user, docID)
		if err != nil {
			writeStoreError(deps, w, err)
			return
		}
		convs, err := deps.Store.ListConversations(ctx, user, docID)
		if err != nil {
			writeStoreError(deps, w, err)
			return
		}
		if err := deps.Store.DeleteDocument(ctx, user, docID); err != nil {
			writeStoreError(deps, w, err)
			return
		}

		// Conversation rows cascade with the record; their memory does not.
		for _, c := range convs {
			if err := deps.Memory.DeleteSession(ctx, c.ID.String()); err != nil {
				deps.Log.Error("failed to delete conversation memory", "conversation_id", c.ID, "err", err)
			}
		}

		// The record is gone; its artifacts go with it so the bucket never
		// accumulates orphaned indexes.
		keys := []string{
			blob.RawKey(user, doc.Filename),
			blob.IndexPayloadKey(user, doc.Filename),
			blob.IndexMetadataKey(user, doc.Filename),
		}
		if err := deps.Storage.Delete(ctx, keys...); err != nil {
			deps.Log.Error("failed to delete document artifacts", "document_id", docID, "err", err)
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"message": "Document deleted successfully",
		})
	}
}

func loadDocument(ctx context.Context, deps app.Deps, user string, docID uuid.UUID) (store.Document, []store.Conversation, string, error) {
	doc, err := deps.Store.GetDocument(ctx, user, docID)
	if err != nil {
		return store.Document{}, nil, "", err
	}
	convs, err := deps.Store.ListConversations(ctx, user, docID)
	if err != nil {
		return store.Document{}, nil, "", err
	}
	url, err := deps.Storage.Presign(ctx, blob.RawKey(user, doc.Filename), presignExpiry)
	if err != nil {
		return store.Document{}, nil, "", err
	}
	return doc, convs, url, nil
}

func writeStoreError(deps app.Deps, w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		httputil.Fail(deps.Log, w, "document not found", err, http.StatusNotFound)
		return
	}
	httputil.Fail(deps.Log, w, "failed to load document", err, http.StatusInternalServerError)
}

func documentResponse(doc store.Document) map[string]any {
	return map[string]any{
		"documentid":    doc.DocumentID.String(),
		"filename":      doc.Filename,
		"docstatus":     doc.Status,
		"error_message": doc.ErrorMessage,
		"created_at":    doc.CreatedAt,
	}
}

func conversationsResponse(convs []store.Conversation) []map[string]any {
	out := make([]map[string]any, 0, len(convs))
	for _, c := range convs {
		out = append(out, map[string]any{
			"conversationid": c.ID.String(),
			"created":        c.Created,
		})
	}
	return out
}

func allowedContentType(filename string) (string, bool) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf", true
	case ".txt":
		return "text/plain", true
	case ".md":
		return "text/markdown", true
	}
	return "", false
}
