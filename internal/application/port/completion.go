package port

import "context"

// CompletionRequest is a single-turn request to a chat completion model
type CompletionRequest struct {
	System      string
	User        string
	Temperature float32
	MaxTokens   int
}

// CompletionClient sends prompts to a language model and returns its raw text answer
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Embedder turns text into vectors. Identical input text must yield identical vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
