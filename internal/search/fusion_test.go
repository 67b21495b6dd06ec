package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

func TestFuse_NoResults_ReturnsEmpty(t *testing.T) {
	fused := fuse(nil, nil, DefaultWeights())
	assert.Empty(t, fused)
}

func TestFuse_UnionOfBothSides_MissingScoreTreatedAsZero(t *testing.T) {
	// Given: "a" appears in both, "b" only in keyword, "c" only in vector
	bm25 := []store.KeywordHit{
		{ChunkID: "a", Score: 10},
		{ChunkID: "b", Score: 5},
	}
	vec := []store.VectorHit{
		{ChunkID: "a", Score: 0.8},
		{ChunkID: "c", Score: 0.4},
	}

	fused := fuse(bm25, vec, DefaultWeights())
	require.Len(t, fused, 3)

	byID := map[string]fusedCandidate{}
	for _, f := range fused {
		byID[f.chunkID] = f
	}

	// "a" has the max on both sides -> norm 1.0 each
	assert.InDelta(t, 1.0, byID["a"].normBM25, 0.0001)
	assert.InDelta(t, 1.0, byID["a"].normSemantic, 0.0001)

	// "b" absent from vector side -> implicit 0 normalized score
	assert.InDelta(t, 0.0, byID["b"].normSemantic, 0.0001)

	// "c" absent from keyword side -> implicit 0 normalized score
	assert.InDelta(t, 0.0, byID["c"].normBM25, 0.0001)
}

func TestFuse_AllZeroScoresStayZero(t *testing.T) {
	bm25 := []store.KeywordHit{{ChunkID: "a", Score: 0}, {ChunkID: "b", Score: 0}}
	fused := fuse(bm25, nil, DefaultWeights())
	require.Len(t, fused, 2)
	for _, f := range fused {
		assert.Equal(t, 0.0, f.normBM25)
		assert.Equal(t, 0.0, f.normSemantic)
	}
}

func TestFuse_MinEqualsMaxAndPositive_AllNormalizeToOne(t *testing.T) {
	bm25 := []store.KeywordHit{{ChunkID: "a", Score: 3}, {ChunkID: "b", Score: 3}}
	fused := fuse(bm25, nil, DefaultWeights())
	require.Len(t, fused, 2)
	for _, f := range fused {
		assert.Equal(t, 1.0, f.normBM25)
	}
}

func TestFuse_BaseScore_IsWeightedSum(t *testing.T) {
	bm25 := []store.KeywordHit{{ChunkID: "a", Score: 10}, {ChunkID: "b", Score: 0}}
	vec := []store.VectorHit{{ChunkID: "a", Score: 1.0}, {ChunkID: "b", Score: 0.5}}

	weights := Weights{BM25: 0.4, Semantic: 0.6}
	fused := fuse(bm25, vec, weights)

	byID := map[string]fusedCandidate{}
	for _, f := range fused {
		byID[f.chunkID] = f
	}

	// a: normBM25=1 (max), normSemantic=1 (max) -> base = 0.4*1 + 0.6*1 = 1.0
	assert.InDelta(t, 1.0, byID["a"].baseScore, 0.0001)
	// b: normBM25=0 (min), normSemantic=0 (min, since 0.5 is min of [1.0,0.5]) -> base = 0
	assert.InDelta(t, 0.0, byID["b"].baseScore, 0.0001)
}

func TestSortResults_OrdersByFinalScoreThenSemThenChunkID(t *testing.T) {
	results := []SearchResult{
		{Chunk: store.DocumentChunk{ChunkID: "z"}, FinalScore: 0.5, NormSemantic: 0.1},
		{Chunk: store.DocumentChunk{ChunkID: "a"}, FinalScore: 0.9, NormSemantic: 0.2},
		{Chunk: store.DocumentChunk{ChunkID: "b"}, FinalScore: 0.9, NormSemantic: 0.5},
		{Chunk: store.DocumentChunk{ChunkID: "c"}, FinalScore: 0.9, NormSemantic: 0.5},
	}

	sortResults(results)

	require.Len(t, results, 4)
	assert.Equal(t, "b", results[0].Chunk.ChunkID) // tie on score+sem, b < c
	assert.Equal(t, "c", results[1].Chunk.ChunkID)
	assert.Equal(t, "a", results[2].Chunk.ChunkID) // same score, lower sem
	assert.Equal(t, "z", results[3].Chunk.ChunkID) // lowest score
}
