package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

// ErrNilDependency is returned when a required Engine dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine is the Hybrid Query Planner (spec §4.5): it fans out a
// keyword-store query and a vector-store query in parallel, fuses
// their scores, applies boosts, and materializes results from the
// Metadata Cache.
type Engine struct {
	keyword  store.KeywordStore
	vector   store.VectorStore
	embedder Embedder
	metadata MetadataLookup
	config   EngineConfig
}

// NewEngine constructs a planner over the given stores, embedder, and
// metadata lookup. All four dependencies are required.
func NewEngine(keyword store.KeywordStore, vector store.VectorStore, embedder Embedder, metadata MetadataLookup, config EngineConfig) (*Engine, error) {
	if keyword == nil {
		return nil, fmt.Errorf("%w: keyword store is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if metadata == nil {
		return nil, fmt.Errorf("%w: metadata lookup is required", ErrNilDependency)
	}
	return &Engine{
		keyword:  keyword,
		vector:   vector,
		embedder: embedder,
		metadata: metadata,
		config:   config,
	}, nil
}

// Search executes spec §4.5's algorithm end to end: over-fetch sizing,
// parallel sub-queries, min-max normalization, weighted-sum fusion,
// boosts, sort, and truncation.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	weights := opts.Weights
	if weights.BM25 == 0 && weights.Semantic == 0 {
		weights = DefaultWeights()
	}

	expandedQuery := ExpandComparisonQuery(query)
	fetchSize := overfetchSize(opts.TopK)

	bm25Hits, vecHits, keywordErr, vectorErr := e.parallelSearch(ctx, expandedQuery, opts.Filters, fetchSize)
	if keywordErr != nil && vectorErr != nil {
		// Full failure (spec §7): "full failure returns an empty list."
		return nil, nil
	}
	if keywordErr != nil {
		slog.Warn("keyword_search_failed", slog.String("error", keywordErr.Error()))
	}
	if vectorErr != nil {
		slog.Warn("vector_search_failed", slog.String("error", vectorErr.Error()))
	}

	fused := fuse(bm25Hits, vecHits, weights)
	results := make([]SearchResult, 0, len(fused))
	for _, fc := range fused {
		chunk, err := e.metadata.Get(fc.chunkID)
		if err != nil {
			// A candidate returned by a store but absent from the cache
			// cannot be materialized; skip it rather than fail the
			// whole search (the cache is eventually consistent with
			// the stores within a single write permit, spec §5).
			continue
		}
		if !matchesComponent(chunk, opts.Filters.Component) {
			// component is an in-memory substring filter on the vector
			// side (spec §4.5 step 3): HNSWVectorStore.Query never
			// applies it, so a vector-only or fused candidate can
			// still carry the wrong component here. Drop it rather
			// than return a result violating a supplied filter (P7).
			continue
		}

		final, position, section, code := applyBoosts(fc.baseScore, chunk)
		results = append(results, SearchResult{
			Chunk:         chunk,
			FinalScore:    final,
			NormBM25:      fc.normBM25,
			NormSemantic:  fc.normSemantic,
			PositionBoost: position,
			SectionBoost:  section,
			CodePenalty:   code,
			MatchedTerms:  fc.matchedTerms,
		})
	}

	sortResults(results)

	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// matchesComponent applies the component filter the stores don't (spec
// §4.5 step 3: component is an in-memory substring filter, unlike the
// exact-match tech/version/file_type filters both stores enforce
// natively). An empty filter matches everything.
func matchesComponent(chunk store.DocumentChunk, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(chunk.Component, filter)
}

// parallelSearch issues the keyword and vector sub-queries concurrently
// (spec §4.5 steps 2-3), bounding each with its configured timeout. The
// two sides fail independently (spec §7: "search on a broken store
// returns whatever the other store produced") rather than through a
// shared errgroup, so one side's error never cancels the other's
// in-flight request.
func (e *Engine) parallelSearch(ctx context.Context, query string, filters store.Filters, size int) ([]store.KeywordHit, []store.VectorHit, error, error) {
	var g errgroup.Group

	var bm25Hits []store.KeywordHit
	var vecHits []store.VectorHit
	var keywordErr, vectorErr error

	g.Go(func() error {
		kctx, cancel := context.WithTimeout(ctx, e.config.KeywordTimeout)
		defer cancel()
		hits, err := e.keyword.Search(kctx, query, filters, size)
		if err != nil {
			keywordErr = fmt.Errorf("keyword search: %w", err)
			return nil
		}
		bm25Hits = hits
		return nil
	})

	g.Go(func() error {
		vctx, cancel := context.WithTimeout(ctx, e.config.VectorTimeout)
		defer cancel()
		embedding, err := e.embedder.Embed(vctx, query)
		if err != nil {
			vectorErr = fmt.Errorf("query embedding: %w", err)
			return nil
		}
		hits, err := e.vector.Query(vctx, embedding, filters, size)
		if err != nil {
			vectorErr = fmt.Errorf("vector search: %w", err)
			return nil
		}
		vecHits = hits
		return nil
	})

	_ = g.Wait()
	return bm25Hits, vecHits, keywordErr, vectorErr
}
