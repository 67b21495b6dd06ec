package embed

import (
	"context"
	"fmt"
)

// Provider identifies an embedding backend.
type Provider string

const (
	// ProviderOllama calls a local/remote Ollama HTTP endpoint.
	ProviderOllama Provider = "ollama"
	// ProviderStatic uses the deterministic hash-based fallback, no
	// network dependency required.
	ProviderStatic Provider = "static"
)

// Config selects and configures an embedding provider.
type Config struct {
	Provider  Provider
	Ollama    OllamaConfig
	CacheSize int
	NoCache   bool
}

// DefaultConfig returns the module's default embedding configuration:
// Ollama with an in-memory LRU cache in front of it.
func DefaultConfig() Config {
	return Config{
		Provider:  ProviderOllama,
		Ollama:    DefaultOllamaConfig(),
		CacheSize: DefaultCacheSize,
	}
}

// NewEmbedder builds the Embedder named by cfg.Provider, wrapping it in
// a CachedEmbedder unless cfg.NoCache is set.
func NewEmbedder(ctx context.Context, cfg Config) (Embedder, error) {
	var inner Embedder
	var err error

	switch cfg.Provider {
	case ProviderOllama:
		inner, err = NewOllamaEmbedder(ctx, cfg.Ollama)
		if err != nil {
			return nil, fmt.Errorf("init ollama embedder: %w", err)
		}
	case ProviderStatic, "":
		inner = NewStaticEmbedder()
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	if cfg.NoCache {
		return inner, nil
	}
	return NewCachedEmbedder(inner, cfg.CacheSize)
}
