// Package embed provides the embed() black box:
// a pluggable text -> 384-dim vector function, with retry, caching, and
// provider selection wrapped around it, the way a production embedder wraps its
// own embedding backends.
package embed

import (
	"context"
	"math"
	"time"
)

// Dimension is the vector width mandated for this module's index; a
// store constructed with any other width is rejected at CreateCollection
// time (spec §4.4/§6).
const Dimension = 384

const (
	// DefaultBatchSize is the default number of texts embedded per call.
	DefaultBatchSize = 32

	// DefaultTimeout bounds a single embedding HTTP call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts on a
	// transient embedding failure (spec §4.4/§7 retry policy).
	DefaultMaxRetries = 3
)

// Embedder generates vector embeddings for text (spec §4.4).
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Available(ctx context.Context) bool
	Close() error
}

// normalizeVector returns a unit-length copy of v; a zero vector is
// returned unchanged since it has no direction to normalize.
func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	out := make([]float32, len(v))
	for i, val := range v {
		out[i] = float32(float64(val) / magnitude)
	}
	return out
}
