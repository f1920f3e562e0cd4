package container

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/application/service"
	"github.com/garyjia/invoice-reimbursement/internal/config"
	"github.com/garyjia/invoice-reimbursement/internal/extraction"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/embedding"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/external/openai"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/persistence/repository"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/vectorindex"
	"github.com/garyjia/invoice-reimbursement/internal/report"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
	"github.com/garyjia/invoice-reimbursement/internal/storage"
	"github.com/garyjia/invoice-reimbursement/pkg/database"
	"github.com/garyjia/invoice-reimbursement/pkg/utils"
	"go.uber.org/zap"
)

// defaultOpenAIEmbeddingDimension matches text-embedding-3-small
const defaultOpenAIEmbeddingDimension = 1536

// ProvideDatabase opens the ledger database and applies migrations
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// ProvideCompletionClient creates the chat completion client
func ProvideCompletionClient(cfg *config.OpenAIConfig, logger *zap.Logger) port.CompletionClient {
	return openai.NewClient(openai.ClientConfig{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		RequestsPerSecond: cfg.RequestsPerSecond,
	}, logger)
}

// ProvideEmbedder creates the embedder selected by cfg.Provider. The openai
// provider reuses the completion credentials unless its own base URL is set.
func ProvideEmbedder(cfg *config.EmbeddingConfig, openaiCfg *config.OpenAIConfig, logger *zap.Logger) (port.Embedder, error) {
	if strings.ToLower(cfg.Provider) != "openai" {
		return embedding.New(embedding.Config{
			Provider:  cfg.Provider,
			Model:     cfg.Model,
			BaseURL:   cfg.BaseURL,
			CacheDir:  cfg.CacheDir,
			Dimension: cfg.Dimension,
		}, logger)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openaiCfg.BaseURL
	}
	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = defaultOpenAIEmbeddingDimension
	}
	return openai.NewEmbedder(openai.EmbedderConfig{
		APIKey:            openaiCfg.APIKey,
		BaseURL:           baseURL,
		Model:             cfg.Model,
		Dimension:         dimension,
		RequestsPerSecond: openaiCfg.RequestsPerSecond,
	}, logger)
}

// ProvideVectorIndex opens the configured vector index backend
func ProvideVectorIndex(ctx context.Context, cfg *config.VectorStoreConfig, embedder port.Embedder, logger *zap.Logger) (port.VectorIndex, error) {
	switch strings.ToLower(cfg.Backend) {
	case "qdrant":
		return vectorindex.NewQdrantIndex(ctx, vectorindex.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			UseTLS:     cfg.Qdrant.UseTLS,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
		}, embedder, logger)
	case "chromem", "":
		return vectorindex.NewChromemIndex(vectorindex.ChromemConfig{
			Path:       cfg.Path,
			Compress:   cfg.Compress,
			Collection: cfg.Collection,
		}, embedder, logger)
	}
	return nil, fmt.Errorf("unknown vector store backend %q", cfg.Backend)
}

// ProvidePrompts loads prompt overrides. A missing file falls back to the
// built-in prompts. The configured max_tokens applies to both prompts and the
// configured temperature to chat only; analysis temperature comes from the
// prompt file so that decisions stay reproducible.
func ProvidePrompts(analysisCfg *config.AnalysisConfig, openaiCfg *config.OpenAIConfig, logger *zap.Logger) (*ai.PromptConfig, error) {
	prompts, err := ai.LoadPrompts(analysisCfg.PromptsPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("Prompts file not found, using built-in prompts",
			zap.String("path", analysisCfg.PromptsPath))
		prompts, err = ai.DefaultPrompts(), nil
	}
	if err != nil {
		return nil, err
	}

	if openaiCfg.MaxTokens > 0 {
		prompts.Analysis.MaxTokens = openaiCfg.MaxTokens
		prompts.Chat.MaxTokens = openaiCfg.MaxTokens
	}
	prompts.Chat.Temperature = openaiCfg.Temperature
	return prompts, nil
}

// ServiceDeps holds everything ProvideServices wires together
type ServiceDeps struct {
	Config     *config.Config
	DB         *database.DB
	Completion port.CompletionClient
	Index      port.VectorIndex
	Prompts    *ai.PromptConfig
	Logger     *zap.Logger
}

// ProvideServices builds the application services
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps.Completion == nil || deps.Index == nil || deps.DB == nil {
		return nil, fmt.Errorf("completion client, vector index and database are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	kv := utils.NewKVLogger(logger)

	analyzer := ai.NewAnalyzer(deps.Completion, deps.Prompts, ai.AnalyzerOptions{
		Timeout: cfg.OpenAI.Timeout,
	}, logger)

	store := retrieval.NewStore(deps.Index, retrieval.Options{
		DefaultLimit: cfg.Analysis.DefaultSearchLimit,
	}, logger)

	ledger := repository.NewDecisionRepository(deps.DB.DB, logger)

	var archiver port.InvoiceArchiver
	if cfg.Upload.ArchiveDir != "" {
		archiver = storage.NewInvoiceArchiver(cfg.Upload.ArchiveDir, logger)
	}

	var answerer service.ChatAnswerer
	if cfg.Analysis.ChatWithLLM {
		answerer = ai.NewChatbot(deps.Completion, deps.Prompts, logger)
	}

	return &ServiceBundle{
		Reimbursement: service.NewReimbursementService(service.ReimbursementDeps{
			Extractor: extraction.NewPDFTextExtractor(logger),
			Analyzer:  analyzer,
			Index:     store,
			Ledger:    ledger,
			Archiver:  archiver,
			Limits: extraction.ArchiveLimits{
				MaxEntries:    cfg.Upload.MaxInvoices,
				MaxEntryBytes: cfg.Upload.MaxInvoiceBytes,
			},
		}, kv),
		Query:     service.NewQueryService(store, answerer, kv),
		Decisions: service.NewDecisionService(ledger, report.NewWorkbookWriter(logger), kv),
		Analyzer:  analyzer,
		Store:     store,
	}, nil
}
