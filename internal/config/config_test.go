package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("QDRANT_HOST", "qdrant.internal")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "chromem", cfg.VectorStore.Backend)
	assert.Equal(t, "invoice_analyses", cfg.VectorStore.Collection)
	assert.Equal(t, "qdrant.internal", cfg.VectorStore.Qdrant.Host)
	assert.Equal(t, 6334, cfg.VectorStore.Qdrant.Port)
	assert.Equal(t, 5, cfg.Analysis.DefaultSearchLimit)
	assert.Equal(t, int64(50<<20), cfg.Upload.MaxUploadBytes)
}

func TestLoad_File(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, `
server:
  port: 9090
openai:
  base_url: https://generativelanguage.googleapis.com/v1beta/openai/
  model: gemini-2.0-flash
  timeout: 15s
embedding:
  provider: hash
  dimension: 128
vectorstore:
  backend: qdrant
  collection: invoices
analysis:
  chat_with_llm: false
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gemini-2.0-flash", cfg.OpenAI.Model)
	assert.Equal(t, 15*time.Second, cfg.OpenAI.Timeout)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 128, cfg.Embedding.Dimension)
	assert.Equal(t, "qdrant", cfg.VectorStore.Backend)
	assert.False(t, cfg.Analysis.ChatWithLLM)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENAI_API_KEY=sk-dotenv\n"), 0644))

	prev, hadPrev := os.LookupEnv("OPENAI_API_KEY")
	require.NoError(t, os.Unsetenv("OPENAI_API_KEY"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		_ = os.Unsetenv("OPENAI_API_KEY")
		if hadPrev {
			_ = os.Setenv("OPENAI_API_KEY", prev)
		}
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-dotenv", cfg.OpenAI.APIKey)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:      ServerConfig{Port: 8000},
			Database:    DatabaseConfig{Path: "data/test.db"},
			OpenAI:      OpenAIConfig{APIKey: "sk", Model: "gpt-4o-mini"},
			Embedding:   EmbeddingConfig{Provider: "openai"},
			VectorStore: VectorStoreConfig{Backend: "chromem", Collection: "c"},
			Analysis:    AnalysisConfig{DefaultSearchLimit: 5},
			Upload:      UploadConfig{MaxUploadBytes: 1},
			Logger:      LoggerConfig{Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing api key", mutate: func(c *Config) { c.OpenAI.APIKey = "" }, wantErr: "openai.api_key"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "bad provider", mutate: func(c *Config) { c.Embedding.Provider = "word2vec" }, wantErr: "embedding.provider"},
		{name: "bad backend", mutate: func(c *Config) { c.VectorStore.Backend = "pinecone" }, wantErr: "vectorstore.backend"},
		{name: "qdrant without host", mutate: func(c *Config) { c.VectorStore.Backend = "qdrant" }, wantErr: "vectorstore.qdrant.host"},
		{name: "no collection", mutate: func(c *Config) { c.VectorStore.Collection = "" }, wantErr: "vectorstore.collection"},
		{name: "bad search limit", mutate: func(c *Config) { c.Analysis.DefaultSearchLimit = 0 }, wantErr: "default_search_limit"},
		{name: "bad log format", mutate: func(c *Config) { c.Logger.Format = "xml" }, wantErr: "logger.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
