package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newFakeOpenAI(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server.URL + "/v1"
}

func TestClient_Complete(t *testing.T) {
	var captured map[string]interface{}
	baseURL := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Status: Fully"}}],"usage":{"prompt_tokens":3,"completion_tokens":2}}`))
	})

	client := NewClient(ClientConfig{APIKey: "test-key", BaseURL: baseURL, Model: "gpt-4o-mini", RequestsPerSecond: 5}, zap.NewNop())
	out, err := client.Complete(context.Background(), port.CompletionRequest{System: "sys", User: "usr", MaxTokens: 50})

	require.NoError(t, err)
	assert.Equal(t, "Status: Fully", out)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	messages := captured["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
	assert.Equal(t, "usr", messages[1].(map[string]interface{})["content"])
}

func TestClient_Complete_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		baseURL := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
		})
		_, err := NewClient(ClientConfig{BaseURL: baseURL, Model: "m"}, nil).Complete(context.Background(), port.CompletionRequest{})
		assert.ErrorContains(t, err, "OpenAI API call failed")
	})

	t.Run("no choices", func(t *testing.T) {
		baseURL := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"choices":[]}`))
		})
		_, err := NewClient(ClientConfig{BaseURL: baseURL, Model: "m"}, nil).Complete(context.Background(), port.CompletionRequest{})
		assert.ErrorContains(t, err, "no response from OpenAI")
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1/v1", Model: "m", RequestsPerSecond: 1}, nil)
		_, err := client.Complete(ctx, port.CompletionRequest{})
		assert.Error(t, err)
	})
}

func TestEmbedder_EmbedDocuments(t *testing.T) {
	baseURL := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// returned out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0,1,0]},{"object":"embedding","index":0,"embedding":[1,0,0]}]}`))
	})

	embedder, err := NewEmbedder(EmbedderConfig{BaseURL: baseURL, Model: "text-embedding-3-small", Dimension: 3}, nil)
	require.NoError(t, err)

	vectors, err := embedder.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, vectors)
	assert.Equal(t, 3, embedder.Dimension())
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	baseURL := newFakeOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	})

	embedder, err := NewEmbedder(EmbedderConfig{BaseURL: baseURL, Model: "m", Dimension: 3}, nil)
	require.NoError(t, err)

	_, err = embedder.EmbedQuery(context.Background(), "a")
	assert.ErrorContains(t, err, "dimension mismatch")
}

func TestNewEmbedder_Validation(t *testing.T) {
	_, err := NewEmbedder(EmbedderConfig{Dimension: 3}, nil)
	assert.Error(t, err)
	_, err = NewEmbedder(EmbedderConfig{Model: "m"}, nil)
	assert.Error(t, err)
}
