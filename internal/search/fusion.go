package search

import (
	"sort"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

// candidate accumulates both sides' raw scores for one chunk_id before
// normalization, matching spec §4.5 step 4: the union of returned ids,
// with an absent side treated as score 0.
type candidate struct {
	chunkID      string
	bm25Score    float64
	vecScore     float64
	matchedTerms []string
}

// fusedCandidate is a candidate after min-max normalization and the
// weighted-sum combination (spec §4.5 steps 5-6), prior to boosts.
type fusedCandidate struct {
	chunkID      string
	normBM25     float64
	normSemantic float64
	baseScore    float64
	matchedTerms []string
}

// fuse normalizes each side independently by min-max into [0,1] and
// combines them into a base hybrid score per spec §4.5 steps 4-6.
func fuse(bm25 []store.KeywordHit, vec []store.VectorHit, weights Weights) []fusedCandidate {
	candidates := make(map[string]*candidate)

	order := func(id string) *candidate {
		c, ok := candidates[id]
		if !ok {
			c = &candidate{chunkID: id}
			candidates[id] = c
		}
		return c
	}

	for _, hit := range bm25 {
		c := order(hit.ChunkID)
		c.bm25Score = hit.Score
		c.matchedTerms = hit.MatchedTerms
	}
	for _, hit := range vec {
		c := order(hit.ChunkID)
		c.vecScore = float64(hit.Score)
	}

	if len(candidates) == 0 {
		return nil
	}

	var bm25Min, bm25Max, vecMin, vecMax float64
	first := true
	for _, c := range candidates {
		if first {
			bm25Min, bm25Max = c.bm25Score, c.bm25Score
			vecMin, vecMax = c.vecScore, c.vecScore
			first = false
			continue
		}
		bm25Min, bm25Max = min(bm25Min, c.bm25Score), max(bm25Max, c.bm25Score)
		vecMin, vecMax = min(vecMin, c.vecScore), max(vecMax, c.vecScore)
	}

	fused := make([]fusedCandidate, 0, len(candidates))
	for _, c := range candidates {
		normBM25 := normalize(c.bm25Score, bm25Min, bm25Max)
		normVec := normalize(c.vecScore, vecMin, vecMax)
		fused = append(fused, fusedCandidate{
			chunkID:      c.chunkID,
			normBM25:     normBM25,
			normSemantic: normVec,
			baseScore:    weights.BM25*normBM25 + weights.Semantic*normVec,
			matchedTerms: c.matchedTerms,
		})
	}

	return fused
}

// normalize min-max scales value into [0,1] given the min/max observed
// across a side's candidates, where a candidate absent from that side
// contributes an implicit 0 (spec §4.5 steps 4-5): a side with every
// score at 0 stays at 0; a side where min == max > 0 collapses to 1
// for every candidate rather than dividing by zero.
func normalize(value, min, max float64) float64 {
	if max == 0 {
		return 0
	}
	if min == max {
		return 1
	}
	return (value - min) / (max - min)
}

// sortResults orders results by final_score descending, breaking ties
// by descending norm_sem then ascending chunk_id (spec §4.5 step 9).
func sortResults(results []SearchResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.FinalScore != b.FinalScore {
			return a.FinalScore > b.FinalScore
		}
		if a.NormSemantic != b.NormSemantic {
			return a.NormSemantic > b.NormSemantic
		}
		return a.Chunk.ChunkID < b.Chunk.ChunkID
	})
}
