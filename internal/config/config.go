package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	OpenAI      OpenAIConfig      `mapstructure:"openai"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vectorstore"`
	Analysis    AnalysisConfig    `mapstructure:"analysis"`
	Upload      UploadConfig      `mapstructure:"upload"`
	Logger      LoggerConfig      `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the decision ledger configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// OpenAIConfig holds the completion service configuration. BaseURL may point
// at any OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	Temperature       float32       `mapstructure:"temperature"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// EmbeddingConfig selects the embedder that feeds the vector index
type EmbeddingConfig struct {
	Provider  string `mapstructure:"provider"` // openai, fastembed, ollama or hash
	Model     string `mapstructure:"model"`
	BaseURL   string `mapstructure:"base_url"`
	CacheDir  string `mapstructure:"cache_dir"`
	Dimension int    `mapstructure:"dimension"`
}

// VectorStoreConfig selects and configures the vector index
type VectorStoreConfig struct {
	Backend    string       `mapstructure:"backend"` // chromem or qdrant
	Path       string       `mapstructure:"path"`
	Collection string       `mapstructure:"collection"`
	Compress   bool         `mapstructure:"compress"`
	Qdrant     QdrantConfig `mapstructure:"qdrant"`
}

// QdrantConfig holds the Qdrant connection settings
type QdrantConfig struct {
	Host   string `mapstructure:"host"`
	Port   int    `mapstructure:"port"`
	UseTLS bool   `mapstructure:"use_tls"`
	APIKey string `mapstructure:"api_key"`
}

// AnalysisConfig tunes analysis and chat
type AnalysisConfig struct {
	PromptsPath        string `mapstructure:"prompts_path"`
	DefaultSearchLimit int    `mapstructure:"default_search_limit"`
	ChatWithLLM        bool   `mapstructure:"chat_with_llm"`
}

// UploadConfig bounds invoice submissions and sets the archive location.
// An empty ArchiveDir disables archiving.
type UploadConfig struct {
	MaxUploadBytes  int64  `mapstructure:"max_upload_bytes"`
	MaxInvoices     int    `mapstructure:"max_invoices"`
	MaxInvoiceBytes int64  `mapstructure:"max_invoice_bytes"`
	ArchiveDir      string `mapstructure:"archive_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from an optional YAML file, a .env file next to
// the working directory, and environment variables, in increasing priority.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of path unless they are already set
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Minute)

	v.SetDefault("database.path", "data/reimbursement.db")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.temperature", 0.3)
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.timeout", 60*time.Second)
	v.SetDefault("openai.requests_per_second", 2.0)

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.cache_dir", "data/models")
	v.SetDefault("embedding.dimension", 0)

	v.SetDefault("vectorstore.backend", "chromem")
	v.SetDefault("vectorstore.path", "data/vectors")
	v.SetDefault("vectorstore.collection", "invoice_analyses")
	v.SetDefault("vectorstore.compress", false)
	v.SetDefault("vectorstore.qdrant.host", "localhost")
	v.SetDefault("vectorstore.qdrant.port", 6334)

	v.SetDefault("analysis.prompts_path", "configs/prompts.yaml")
	v.SetDefault("analysis.default_search_limit", 5)
	v.SetDefault("analysis.chat_with_llm", true)

	v.SetDefault("upload.max_upload_bytes", 50<<20)
	v.SetDefault("upload.max_invoices", 100)
	v.SetDefault("upload.max_invoice_bytes", 10<<20)
	v.SetDefault("upload.archive_dir", "data/invoices")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("openai.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("openai.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("openai.model", "OPENAI_MODEL")
	_ = v.BindEnv("embedding.provider", "EMBEDDING_PROVIDER")
	_ = v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL")
	_ = v.BindEnv("vectorstore.backend", "VECTORSTORE_BACKEND")
	_ = v.BindEnv("vectorstore.qdrant.host", "QDRANT_HOST")
	_ = v.BindEnv("vectorstore.qdrant.port", "QDRANT_PORT")
	_ = v.BindEnv("vectorstore.qdrant.api_key", "QDRANT_API_KEY")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
}

var (
	embeddingProviders = map[string]bool{"openai": true, "fastembed": true, "ollama": true, "hash": true}
	vectorBackends     = map[string]bool{"chromem": true, "qdrant": true}
	logFormats         = map[string]bool{"json": true, "console": true}
)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai.api_key is required")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai.model is required")
	}
	if c.OpenAI.Timeout < 0 {
		return fmt.Errorf("openai.timeout must not be negative")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if !embeddingProviders[strings.ToLower(c.Embedding.Provider)] {
		return fmt.Errorf("embedding.provider %q is not one of openai, fastembed, ollama, hash", c.Embedding.Provider)
	}

	switch strings.ToLower(c.VectorStore.Backend) {
	case "qdrant":
		if c.VectorStore.Qdrant.Host == "" {
			return fmt.Errorf("vectorstore.qdrant.host is required for the qdrant backend")
		}
	default:
		if !vectorBackends[strings.ToLower(c.VectorStore.Backend)] {
			return fmt.Errorf("vectorstore.backend %q is not one of chromem, qdrant", c.VectorStore.Backend)
		}
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vectorstore.collection is required")
	}

	if c.Analysis.DefaultSearchLimit <= 0 {
		return fmt.Errorf("analysis.default_search_limit must be positive")
	}
	if c.Upload.MaxUploadBytes <= 0 {
		return fmt.Errorf("upload.max_upload_bytes must be positive")
	}

	if !logFormats[c.Logger.Format] {
		return fmt.Errorf("logger.format %q is not one of json, console", c.Logger.Format)
	}

	return nil
}
