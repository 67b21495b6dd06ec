// Package search implements the Hybrid Query Planner (spec §4.5): it
// issues parallel keyword and vector sub-queries, normalizes and fuses
// their scores, applies boosts, and materializes results from the
// Metadata Cache.
package search

import (
	"context"
	"time"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

// Weights controls the relative contribution of each side of the
// hybrid search to the fused base score (spec §4.5 step 6). They must
// be nonnegative and sum to 1 ± 0.01.
type Weights struct {
	BM25     float64
	Semantic float64
}

// DefaultWeights returns the default weighting.
func DefaultWeights() Weights {
	return Weights{BM25: 0.4, Semantic: 0.6}
}

// SearchResult is a single ranked hit returned by Search, enriched
// with content and provenance from the Metadata Cache.
type SearchResult struct {
	Chunk        store.DocumentChunk
	FinalScore   float64
	NormBM25     float64
	NormSemantic float64
	PositionBoost float64
	SectionBoost  float64
	CodePenalty   float64
	MatchedTerms []string
}

// SearchOptions configures a single Search call.
type SearchOptions struct {
	TopK    int
	Filters store.Filters
	Weights Weights
}

// EngineConfig configures the Hybrid Query Planner's operational
// parameters (per-call timeouts, spec §5).
type EngineConfig struct {
	KeywordTimeout time.Duration
	VectorTimeout  time.Duration
}

// DefaultEngineConfig returns the default timeout values.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		KeywordTimeout: 60 * time.Second,
		VectorTimeout:  5 * time.Second,
	}
}

// MetadataLookup is the read-side contract the planner needs from the
// Metadata Cache: materializing a chunk record for boosts and content.
type MetadataLookup interface {
	Get(chunkID string) (store.DocumentChunk, error)
}

// Embedder is the minimal contract the planner needs to turn a query
// into a vector; satisfied by internal/embed.Embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
