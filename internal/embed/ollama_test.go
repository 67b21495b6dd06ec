package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeOllamaServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[0] = float32(i + 1)
			embeddings[i] = vec
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
}

func TestOllamaEmbedder_Embed_ReturnsVectorFromServer(t *testing.T) {
	// Given: a fake Ollama server producing Dimension-width vectors
	server := fakeOllamaServer(t, Dimension)
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true

	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	// When: I embed a single text
	vec, err := embedder.Embed(context.Background(), "func main() {}")

	// Then: the server's vector is returned
	require.NoError(t, err)
	require.Len(t, vec, Dimension)
	assert.Equal(t, float32(1), vec[0])
}

func TestOllamaEmbedder_Embed_EmptyTextSkipsRoundTrip(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{make([]float32, Dimension)}})
	}))
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true
	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	vec, err := embedder.Embed(context.Background(), "   ")
	require.NoError(t, err)
	assert.Len(t, vec, Dimension)
	assert.Equal(t, 0, calls, "blank text should not hit the network")
}

func TestOllamaEmbedder_EmbedBatch_ChunksToBatchSize(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		batchSizes = append(batchSizes, len(req.Input))

		embeddings := make([][]float32, len(req.Input))
		for i := range req.Input {
			embeddings[i] = make([]float32, Dimension)
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: embeddings})
	}))
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true
	cfg.BatchSize = 2
	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	texts := []string{"one", "two", "three", "four", "five"}
	results, err := embedder.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	assert.Len(t, results, len(texts))
	assert.Equal(t, []int{2, 2, 1}, batchSizes)
}

func TestOllamaEmbedder_New_FailsOnDimensionMismatch(t *testing.T) {
	// Given: a server reporting the wrong dimension
	server := fakeOllamaServer(t, Dimension/2)
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL

	// When: constructing with the health check enabled
	_, err := NewOllamaEmbedder(context.Background(), cfg)

	// Then: construction fails fast
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dim")
}

func TestOllamaEmbedder_New_FailsWhenUnreachable(t *testing.T) {
	cfg := DefaultOllamaConfig()
	cfg.Host = "http://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond

	_, err := NewOllamaEmbedder(context.Background(), cfg)
	require.Error(t, err)
}

func TestOllamaEmbedder_Embed_RetriesOnTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{make([]float32, Dimension)}})
	}))
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true
	cfg.MaxRetries = 3
	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	_, err = embedder.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestOllamaEmbedder_Dimensions_ReturnsDimension(t *testing.T) {
	server := fakeOllamaServer(t, Dimension)
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true
	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)
	defer func() { _ = embedder.Close() }()

	assert.Equal(t, Dimension, embedder.Dimensions())
}

func TestOllamaEmbedder_Available_FalseAfterClose(t *testing.T) {
	server := fakeOllamaServer(t, Dimension)
	defer server.Close()

	cfg := DefaultOllamaConfig()
	cfg.Host = server.URL
	cfg.SkipHealthCheck = true
	embedder, err := NewOllamaEmbedder(context.Background(), cfg)
	require.NoError(t, err)

	assert.True(t, embedder.Available(context.Background()))
	require.NoError(t, embedder.Close())
	assert.False(t, embedder.Available(context.Background()))
}
