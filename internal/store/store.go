// Package store persists chunks produced by the pipeline.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// ErrNotFound is returned when a document has no stored chunks.
var ErrNotFound = errors.New("document not found")

// StoredChunk is a chunk together with the identity assigned on storage.
type StoredChunk struct {
	ID        string    `json:"id"`
	DocID     string    `json:"doc_id"`
	CreatedAt time.Time `json:"created_at"`
	doctree.Chunk
}

// ChunkStore is where chunks go once a document has been processed.
// Implementations must be safe for concurrent use.
type ChunkStore interface {
	// PutChunk stores one chunk of a document and returns its ID. Storing a
	// chunk at a position that already exists replaces it.
	PutChunk(ctx context.Context, docID string, c doctree.Chunk) (string, error)

	// ListChunks returns a document's chunks ordered by position.
	ListChunks(ctx context.Context, docID string) ([]StoredChunk, error)

	// DeleteDocument removes all chunks of a document.
	DeleteDocument(ctx context.Context, docID string) error

	Close() error
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
