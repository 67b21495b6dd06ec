// Package config loads and validates engine configuration from YAML with
// environment-variable overrides, mirroring a common layered config
// convention (file defaults, then env vars take precedence).
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete docs-mcp-server configuration (§6).
type Config struct {
	// IndexDir is the path used for all persisted files.
	IndexDir string `yaml:"index_dir" json:"index_dir"`

	Chunking ChunkingConfig `yaml:"chunking" json:"chunking"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Embed    EmbedConfig    `yaml:"embed" json:"embed"`
	Stores   StoresConfig   `yaml:"stores" json:"stores"`
	Writer   WriterConfig   `yaml:"writer" json:"writer"`
}

// ChunkingConfig tunes the Chunker (§4.1, §6).
type ChunkingConfig struct {
	ChunkSizeTokens   int `yaml:"chunk_size_tokens" json:"chunk_size_tokens"`
	ChunkOverlapWords int `yaml:"chunk_overlap_words" json:"chunk_overlap_words"`
}

// SearchConfig tunes the Hybrid Query Planner (§4.5).
type SearchConfig struct {
	// BM25Weight and SemanticWeight must be nonnegative and sum to 1 +/- 0.01.
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
}

// EmbedConfig identifies the embedding function (§6).
type EmbedConfig struct {
	ModelID   string `yaml:"embedding_model_id" json:"embedding_model_id"`
	Dimension int    `yaml:"embedding_dim" json:"embedding_dim"`
	Provider  string `yaml:"provider" json:"provider"` // "ollama" | "static"
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	CacheSize int    `yaml:"cache_size" json:"cache_size"`
}

// StoresConfig configures the two secondary indices.
type StoresConfig struct {
	KeywordIndexName    string         `yaml:"keyword_index_name" json:"keyword_index_name"`
	VectorCollection    string         `yaml:"vector_collection" json:"vector_collection"`
	KeywordTimeout      int            `yaml:"keyword_timeout_seconds" json:"keyword_timeout_seconds"`
	VectorTimeout       int            `yaml:"vector_timeout_seconds" json:"vector_timeout_seconds"`
	VectorBackend       string         `yaml:"vector_backend" json:"vector_backend"` // "hnsw" | "qdrant"
	QdrantAddr          string         `yaml:"qdrant_addr" json:"qdrant_addr"`
	ChangeTrackerBackend string        `yaml:"change_tracker_backend" json:"change_tracker_backend"` // "file" | "redis"
	RedisAddr           string         `yaml:"redis_addr" json:"redis_addr"`
	VectorStoreConfig   map[string]any `yaml:"-" json:"-"`
}

// WriterConfig tunes the Dual-Store Writer (§4.4).
type WriterConfig struct {
	BatchSize   int `yaml:"batch_size" json:"batch_size"`
	FlushEveryN int `yaml:"flush_every_n_files" json:"flush_every_n_files"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig(indexDir string) Config {
	return Config{
		IndexDir: indexDir,
		Chunking: ChunkingConfig{
			ChunkSizeTokens:   100, // ~400 chars
			ChunkOverlapWords: 0,
		},
		Search: SearchConfig{
			BM25Weight:     0.4,
			SemanticWeight: 0.6,
		},
		Embed: EmbedConfig{
			ModelID:   "static-minilm-384",
			Dimension: 384,
			Provider:  "static",
			CacheSize: 4096,
		},
		Stores: StoresConfig{
			KeywordIndexName:     "docs_chunks",
			VectorCollection:     "docs_chunks",
			KeywordTimeout:       60,
			VectorTimeout:        5,
			VectorBackend:        "hnsw",
			ChangeTrackerBackend: "file",
		},
		Writer: WriterConfig{
			BatchSize:   100,
			FlushEveryN: 10,
		},
	}
}

// Load reads a YAML config file, applies environment overrides, fills
// defaults for zero-valued fields, and validates the result. A Config
// error (§7) here must fail fast at construction.
func Load(path string, indexDir string) (Config, error) {
	cfg := DefaultConfig(indexDir)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)
	fillDefaults(&cfg, indexDir)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fillDefaults(cfg *Config, indexDir string) {
	def := DefaultConfig(indexDir)
	if cfg.IndexDir == "" {
		cfg.IndexDir = indexDir
	}
	if cfg.Chunking.ChunkSizeTokens == 0 {
		cfg.Chunking.ChunkSizeTokens = def.Chunking.ChunkSizeTokens
	}
	if cfg.Search.BM25Weight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.BM25Weight = def.Search.BM25Weight
		cfg.Search.SemanticWeight = def.Search.SemanticWeight
	}
	if cfg.Embed.Dimension == 0 {
		cfg.Embed.Dimension = def.Embed.Dimension
	}
	if cfg.Embed.ModelID == "" {
		cfg.Embed.ModelID = def.Embed.ModelID
	}
	if cfg.Embed.Provider == "" {
		cfg.Embed.Provider = def.Embed.Provider
	}
	if cfg.Embed.CacheSize == 0 {
		cfg.Embed.CacheSize = def.Embed.CacheSize
	}
	if cfg.Stores.KeywordIndexName == "" {
		cfg.Stores.KeywordIndexName = def.Stores.KeywordIndexName
	}
	if cfg.Stores.VectorCollection == "" {
		cfg.Stores.VectorCollection = def.Stores.VectorCollection
	}
	if cfg.Stores.KeywordTimeout == 0 {
		cfg.Stores.KeywordTimeout = def.Stores.KeywordTimeout
	}
	if cfg.Stores.VectorTimeout == 0 {
		cfg.Stores.VectorTimeout = def.Stores.VectorTimeout
	}
	if cfg.Stores.VectorBackend == "" {
		cfg.Stores.VectorBackend = def.Stores.VectorBackend
	}
	if cfg.Stores.ChangeTrackerBackend == "" {
		cfg.Stores.ChangeTrackerBackend = def.Stores.ChangeTrackerBackend
	}
	if cfg.Writer.BatchSize == 0 {
		cfg.Writer.BatchSize = def.Writer.BatchSize
	}
	if cfg.Writer.FlushEveryN == 0 {
		cfg.Writer.FlushEveryN = def.Writer.FlushEveryN
	}
}

// applyEnvOverrides mirrors a common *_PRECEDENCE convention, using the
// DOCSMCP_ prefix for this module.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCSMCP_BM25_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.BM25Weight = f
		}
	}
	if v := os.Getenv("DOCSMCP_SEMANTIC_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.SemanticWeight = f
		}
	}
	if v := os.Getenv("DOCSMCP_EMBED_PROVIDER"); v != "" {
		cfg.Embed.Provider = strings.ToLower(v)
	}
	if v := os.Getenv("DOCSMCP_INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
}

// Validate enforces the Config error rule: weights nonnegative and
// summing to 1 +/- 0.01 (§4.5, §7).
func (c Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.SemanticWeight < 0 {
		return fmt.Errorf("config error: bm25_weight and semantic_weight must be nonnegative")
	}
	sum := c.Search.BM25Weight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("config error: bm25_weight + semantic_weight must sum to 1 (+/- 0.01), got %.4f", sum)
	}
	if c.Embed.Dimension <= 0 {
		return fmt.Errorf("config error: embedding_dim must be positive")
	}
	if c.IndexDir == "" {
		return fmt.Errorf("config error: index_dir must be set")
	}
	return nil
}
