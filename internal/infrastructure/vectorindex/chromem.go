// Package vectorindex implements port.VectorIndex on chromem-go (embedded) and Qdrant (remote).
package vectorindex

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig configures the embedded index
type ChromemConfig struct {
	// Path of the persistence directory. Empty keeps the index in memory.
	Path       string
	Compress   bool
	Collection string
}

// ChromemIndex is an append-only port.VectorIndex backed by chromem-go
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   port.Embedder
	logger     *zap.Logger

	// serialises the duplicate check with the write
	mu sync.Mutex
}

var _ port.VectorIndex = (*ChromemIndex)(nil)

// NewChromemIndex opens (or creates) the collection described by cfg
func NewChromemIndex(cfg ChromemConfig, embedder port.Embedder, logger *zap.Logger) (*ChromemIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var db *chromem.DB
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", cfg.Path, err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	embed := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("getting/creating collection %s: %w", cfg.Collection, err)
	}

	logger.Info("Chromem index initialized",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
		zap.Int("documents", collection.Count()))

	return &ChromemIndex{
		db:         db,
		collection: collection,
		embedder:   embedder,
		logger:     logger,
	}, nil
}

// Add embeds and stores documents. chromem overwrites existing ids silently,
// so existence is checked first and the whole batch is rejected on a collision.
func (c *ChromemIndex) Add(ctx context.Context, ids, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, documents and metadatas must have equal length (%d, %d, %d)", len(ids), len(documents), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s (repeated in batch)", port.ErrDuplicateID, id)
		}
		seen[id] = true
		if _, err := c.collection.GetByID(ctx, id); err == nil {
			return fmt.Errorf("%w: %s", port.ErrDuplicateID, id)
		}
	}

	embeddings, err := c.embedder.EmbedDocuments(ctx, documents)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	docs := make([]chromem.Document, len(ids))
	for i := range ids {
		docs[i] = chromem.Document{
			ID:        ids[i],
			Content:   documents[i],
			Metadata:  metadatas[i],
			Embedding: embeddings[i],
		}
	}

	// embeddings are precomputed, so no concurrency is needed
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	c.logger.Debug("Added documents to chromem", zap.Strings("ids", ids))
	return nil
}

// Query runs a nearest-neighbour search restricted by the exact-match where filter
func (c *ChromemIndex) Query(ctx context.Context, queryText string, where map[string]string, nResults int) ([]port.IndexResult, error) {
	if nResults <= 0 {
		return nil, fmt.Errorf("nResults must be positive, got %d", nResults)
	}

	// chromem requires nResults <= document count
	count := c.collection.Count()
	if count == 0 {
		return []port.IndexResult{}, nil
	}
	if nResults > count {
		nResults = count
	}

	queryEmbedding, err := c.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	if len(where) == 0 {
		where = nil
	}
	results, err := c.collection.QueryEmbedding(ctx, queryEmbedding, nResults, where, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", c.collection.Name, err)
	}

	out := make([]port.IndexResult, len(results))
	for i, r := range results {
		out[i] = port.IndexResult{
			ID:       r.ID,
			Document: r.Content,
			Metadata: r.Metadata,
			Score:    r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of stored documents
func (c *ChromemIndex) Count(_ context.Context) (int, error) {
	return c.collection.Count(), nil
}

// Close is a no-op; chromem persists every write immediately
func (c *ChromemIndex) Close() error {
	return nil
}
