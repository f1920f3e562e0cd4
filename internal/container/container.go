// Package container provides dependency injection and lifecycle management
// for the invoice reimbursement system.
package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/application/service"
	"github.com/garyjia/invoice-reimbursement/internal/config"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
	"github.com/garyjia/invoice-reimbursement/pkg/database"
	"go.uber.org/zap"
)

// Container manages all application dependencies and lifecycle.
// Components are initialised in dependency order and torn down in reverse.
type Container struct {
	config *config.Config
	logger *zap.Logger

	// Infrastructure
	db         *database.DB
	completion port.CompletionClient
	embedder   port.Embedder
	index      port.VectorIndex
	prompts    *ai.PromptConfig

	// Application
	services *ServiceBundle

	mu     sync.Mutex
	ready  atomic.Bool
	closed atomic.Bool
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Reimbursement service.ReimbursementService
	Query         service.QueryService
	Decisions     service.DecisionService

	// exposed for the single-shot analysis tool
	Analyzer *ai.Analyzer
	Store    *retrieval.Store
}

// NewContainer creates a new container from configuration.
// It does not initialize components - call Start() to initialize.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components in dependency order:
// 1. Ledger database
// 2. Completion client and embedder
// 3. Vector index
// 4. Prompts and application services
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	db, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.db = db
	c.logger.Info("Database initialized")

	c.completion = ProvideCompletionClient(&c.config.OpenAI, c.logger)
	embedder, err := ProvideEmbedder(&c.config.Embedding, &c.config.OpenAI, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.embedder = embedder
	c.logger.Info("External clients initialized",
		zap.String("model", c.config.OpenAI.Model),
		zap.String("embedding_provider", c.config.Embedding.Provider))

	index, err := ProvideVectorIndex(ctx, &c.config.VectorStore, c.embedder, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize vector index: %w", err)
	}
	c.index = index
	c.logger.Info("Vector index initialized", zap.String("backend", c.config.VectorStore.Backend))

	prompts, err := ProvidePrompts(&c.config.Analysis, &c.config.OpenAI, c.logger)
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to load prompts: %w", err)
	}
	c.prompts = prompts

	services, err := ProvideServices(&ServiceDeps{
		Config:     c.config,
		DB:         c.db,
		Completion: c.completion,
		Index:      c.index,
		Prompts:    c.prompts,
		Logger:     c.logger,
	})
	if err != nil {
		c.teardown()
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.services = services
	c.logger.Info("Application services initialized")

	c.ready.Store(true)
	c.logger.Info("Container started successfully")
	return nil
}

// Close gracefully shuts down all components in reverse order.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	c.logger.Info("Closing container")
	errs := c.teardown()

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		c.logger.Error("Container closed with errors", zap.Int("error_count", len(errs)))
		return fmt.Errorf("container closed with %d errors: %w", len(errs), errs[0])
	}

	c.logger.Info("Container closed successfully")
	return nil
}

// teardown releases whatever has been initialised so far
func (c *Container) teardown() []error {
	var errs []error

	if c.index != nil {
		if err := c.index.Close(); err != nil {
			c.logger.Error("Failed to close vector index", zap.Error(err))
			errs = append(errs, fmt.Errorf("close vector index: %w", err))
		}
		c.index = nil
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			c.logger.Error("Failed to close database", zap.Error(err))
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
		c.db = nil
	}
	return errs
}

// HealthChecks returns one check per external dependency. Every check
// fails until Start has completed and again after Close.
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	return map[string]func(ctx context.Context) error{
		"database": func(ctx context.Context) error {
			if c.db == nil {
				return fmt.Errorf("not initialized")
			}
			return c.db.PingContext(ctx)
		},
		"vector_index": func(ctx context.Context) error {
			if c.index == nil {
				return fmt.Errorf("not initialized")
			}
			_, err := c.index.Count(ctx)
			return err
		},
	}
}

// Services returns the application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Config returns the container's configuration.
func (c *Container) Config() *config.Config {
	return c.config
}
