package port

import (
	"context"
	"errors"
)

var (
	// ErrDuplicateID is returned when a document id already exists in the index
	ErrDuplicateID = errors.New("document id already exists")

	// ErrIndexUnavailable is returned when the backing index cannot be reached
	ErrIndexUnavailable = errors.New("vector index unavailable")
)

// IndexResult is one nearest-neighbour match returned by a VectorIndex
type IndexResult struct {
	ID       string
	Document string
	Metadata map[string]string
	Score    float32
}

// VectorIndex is an append-only similarity index over text documents.
// The index embeds documents and queries itself.
type VectorIndex interface {
	// Add stores documents atomically. It fails with ErrDuplicateID, without
	// writing anything, if any id is already present.
	Add(ctx context.Context, ids, documents []string, metadatas []map[string]string) error

	// Query returns up to nResults documents ordered by similarity to queryText.
	// Every key in where must match the stored metadata value exactly.
	Query(ctx context.Context, queryText string, where map[string]string, nResults int) ([]IndexResult, error)

	// Count returns the number of stored documents
	Count(ctx context.Context) (int, error)

	Close() error
}
