package embedding

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
)

// OllamaEmbedder embeds text through a local Ollama server using chromem-go's client
type OllamaEmbedder struct {
	embed     chromem.EmbeddingFunc
	dimension int
}

// NewOllamaEmbedder creates an embedder for model served at baseURL
// (empty means http://localhost:11434/api).
func NewOllamaEmbedder(model, baseURL string, dimension int) (*OllamaEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("ollama embedding model is required")
	}
	if dimension <= 0 {
		return nil, fmt.Errorf("ollama embedding dimension must be positive, got %d", dimension)
	}
	return &OllamaEmbedder{
		embed:     chromem.NewEmbeddingFuncOllama(model, baseURL),
		dimension: dimension,
	}, nil
}

func (o *OllamaEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	vectors := make([][]float32, 0, len(texts))
	for _, text := range texts {
		v, err := o.EmbedQuery(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (o *OllamaEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	v, err := o.embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("ollama embedding: %w", err)
	}
	if len(v) != o.dimension {
		return nil, fmt.Errorf("ollama embedding dimension mismatch: expected %d, got %d", o.dimension, len(v))
	}
	return v, nil
}

func (o *OllamaEmbedder) Dimension() int {
	return o.dimension
}
