// Package embedding provides the local and self-hosted port.Embedder implementations.
package embedding

import (
	"errors"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"go.uber.org/zap"
)

var (
	// ErrEmptyInput is returned when there is nothing to embed
	ErrEmptyInput = errors.New("embedding input is empty")

	// ErrUnknownProvider is returned by New for an unsupported provider name
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Provider names accepted by New
const (
	ProviderFastEmbed = "fastembed"
	ProviderOllama    = "ollama"
	ProviderHash      = "hash"
)

// Config selects and configures a local embedding provider
type Config struct {
	Provider  string
	Model     string
	BaseURL   string
	CacheDir  string
	Dimension int
}

// New builds the embedder named by cfg.Provider. The remote OpenAI provider
// lives in the openai package and is selected by the caller.
func New(cfg Config, logger *zap.Logger) (port.Embedder, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderFastEmbed:
		provider, err := NewFastEmbedProvider(FastEmbedConfig{Model: cfg.Model, CacheDir: cfg.CacheDir})
		if err != nil {
			return nil, err
		}
		logger.Info("Using fastembed embeddings", zap.String("model", cfg.Model), zap.Int("dimension", provider.Dimension()))
		return provider, nil
	case ProviderOllama:
		embedder, err := NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.Dimension)
		if err != nil {
			return nil, err
		}
		logger.Info("Using ollama embeddings", zap.String("model", cfg.Model), zap.String("base_url", cfg.BaseURL))
		return embedder, nil
	case ProviderHash:
		logger.Warn("Using hash embeddings; semantic ranking is keyword based")
		return NewHashEmbedder(cfg.Dimension), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
}
