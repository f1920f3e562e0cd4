package openai

import (
	"context"
	"fmt"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EmbedderConfig configures the OpenAI embeddings adapter
type EmbedderConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimension         int
	RequestsPerSecond float64
}

// Embedder implements port.Embedder with the OpenAI embeddings endpoint
type Embedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	dimension int
	limiter   *rate.Limiter
	logger    *zap.Logger
}

var _ port.Embedder = (*Embedder)(nil)

// NewEmbedder creates a new OpenAI embedder
func NewEmbedder(cfg EmbedderConfig, logger *zap.Logger) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedding model is required")
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:    openai.NewClientWithConfig(newOpenAIConfig(cfg.APIKey, cfg.BaseURL)),
		model:     openai.EmbeddingModel(cfg.Model),
		dimension: cfg.Dimension,
		limiter:   newLimiter(cfg.RequestsPerSecond),
		logger:    logger,
	}, nil
}

// EmbedDocuments embeds texts in one request, preserving order
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: e.model,
	})
	if err != nil {
		e.logger.Error("OpenAI embeddings call failed", zap.Error(err))
		return nil, fmt.Errorf("OpenAI embeddings call failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", item.Index)
		}
		if len(item.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dimension, len(item.Embedding))
		}
		vectors[item.Index] = item.Embedding
	}
	return vectors, nil
}

// EmbedQuery embeds a single query text
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimension returns the configured vector size
func (e *Embedder) Dimension() int {
	return e.dimension
}
