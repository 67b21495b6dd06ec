package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

type stubKeywordStore struct {
	hits []store.KeywordHit
	err  error
}

func (s *stubKeywordStore) CreateIndex(context.Context, string) error { return nil }
func (s *stubKeywordStore) Bulk(context.Context, []store.DocumentChunk, []string, bool) error {
	return nil
}
func (s *stubKeywordStore) Search(context.Context, string, store.Filters, int) ([]store.KeywordHit, error) {
	return s.hits, s.err
}
func (s *stubKeywordStore) DeleteByID(context.Context, []string) error { return nil }
func (s *stubKeywordStore) Count(context.Context) (int, error)        { return len(s.hits), nil }
func (s *stubKeywordStore) Ping(context.Context) error                { return nil }
func (s *stubKeywordStore) Close() error                              { return nil }

type stubVectorStore struct {
	hits []store.VectorHit
	err  error
}

func (s *stubVectorStore) CreateCollection(context.Context, string, int) error { return nil }
func (s *stubVectorStore) Upsert(context.Context, []store.VectorPoint) error   { return nil }
func (s *stubVectorStore) Query(context.Context, []float32, store.Filters, int) ([]store.VectorHit, error) {
	return s.hits, s.err
}
func (s *stubVectorStore) Delete(context.Context, []string) error { return nil }
func (s *stubVectorStore) Count(context.Context) (int, error)     { return len(s.hits), nil }
func (s *stubVectorStore) Close() error                           { return nil }

type stubEmbedder struct {
	vec []float32
	err error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) { return s.vec, s.err }

type stubMetadataLookup struct {
	chunks map[string]store.DocumentChunk
}

func (s *stubMetadataLookup) Get(chunkID string) (store.DocumentChunk, error) {
	c, ok := s.chunks[chunkID]
	if !ok {
		return store.DocumentChunk{}, store.ErrNotFound
	}
	return c, nil
}

func newTestEngine(t *testing.T, kw *stubKeywordStore, vec *stubVectorStore, emb *stubEmbedder, meta *stubMetadataLookup) *Engine {
	t.Helper()
	e, err := NewEngine(kw, vec, emb, meta, DefaultEngineConfig())
	require.NoError(t, err)
	return e
}

func TestNewEngine_RejectsNilDependencies(t *testing.T) {
	kw := &stubKeywordStore{}
	vec := &stubVectorStore{}
	emb := &stubEmbedder{}
	meta := &stubMetadataLookup{}

	_, err := NewEngine(nil, vec, emb, meta, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(kw, nil, emb, meta, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(kw, vec, nil, meta, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)

	_, err = NewEngine(kw, vec, emb, nil, DefaultEngineConfig())
	assert.ErrorIs(t, err, ErrNilDependency)
}

func TestEngine_Search_FusesAndRanksResults(t *testing.T) {
	chunks := map[string]store.DocumentChunk{
		"chunk-a": {ChunkID: "chunk-a", ChunkIndex: 0, SourcePath: "/docs/intro/a.md", Content: "intro prose about the topic"},
		"chunk-b": {ChunkID: "chunk-b", ChunkIndex: 5, SourcePath: "/docs/misc/b.md", Content: "more prose about something else"},
	}

	kw := &stubKeywordStore{hits: []store.KeywordHit{
		{ChunkID: "chunk-a", Score: 10},
		{ChunkID: "chunk-b", Score: 2},
	}}
	vec := &stubVectorStore{hits: []store.VectorHit{
		{ChunkID: "chunk-a", Score: 0.9},
		{ChunkID: "chunk-b", Score: 0.3},
	}}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{chunks: chunks}

	engine := newTestEngine(t, kw, vec, emb, meta)

	results, err := engine.Search(context.Background(), "topic", SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "chunk-a", results[0].Chunk.ChunkID, "higher score on both sides should rank first")
}

func TestEngine_Search_TruncatesToTopK(t *testing.T) {
	chunks := map[string]store.DocumentChunk{}
	var hits []store.KeywordHit
	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		chunks[id] = store.DocumentChunk{ChunkID: id, SourcePath: "/docs/x.md"}
		hits = append(hits, store.KeywordHit{ChunkID: id, Score: float64(20 - i)})
	}

	kw := &stubKeywordStore{hits: hits}
	vec := &stubVectorStore{}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{chunks: chunks}

	engine := newTestEngine(t, kw, vec, emb, meta)

	results, err := engine.Search(context.Background(), "anything", SearchOptions{TopK: 5})
	require.NoError(t, err)
	assert.Len(t, results, 5)
}

func TestEngine_Search_KeywordErrorFallsBackToVectorResults(t *testing.T) {
	chunks := map[string]store.DocumentChunk{
		"chunk-v": {ChunkID: "chunk-v", SourcePath: "/docs/v.md"},
	}
	kw := &stubKeywordStore{err: errors.New("boom")}
	vec := &stubVectorStore{hits: []store.VectorHit{{ChunkID: "chunk-v", Score: 0.7}}}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{chunks: chunks}

	engine := newTestEngine(t, kw, vec, emb, meta)

	results, err := engine.Search(context.Background(), "query", SearchOptions{TopK: 10})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "chunk-v", results[0].Chunk.ChunkID)
}

func TestEngine_Search_SkipsCandidatesMissingFromMetadataCache(t *testing.T) {
	kw := &stubKeywordStore{hits: []store.KeywordHit{{ChunkID: "ghost", Score: 1}}}
	vec := &stubVectorStore{}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{chunks: map[string]store.DocumentChunk{}}

	engine := newTestEngine(t, kw, vec, emb, meta)

	results, err := engine.Search(context.Background(), "query", SearchOptions{TopK: 10})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEngine_Search_DropsVectorOnlyHitNotMatchingComponentFilter(t *testing.T) {
	chunks := map[string]store.DocumentChunk{
		"auth-chunk":  {ChunkID: "auth-chunk", SourcePath: "/docs/auth.md", Component: "auth"},
		"model-chunk": {ChunkID: "model-chunk", SourcePath: "/docs/models.md", Component: "models"},
	}

	kw := &stubKeywordStore{}
	vec := &stubVectorStore{hits: []store.VectorHit{
		{ChunkID: "auth-chunk", Score: 0.9},
		{ChunkID: "model-chunk", Score: 0.8},
	}}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{chunks: chunks}

	engine := newTestEngine(t, kw, vec, emb, meta)

	results, err := engine.Search(context.Background(), "query", SearchOptions{
		TopK:    10,
		Filters: store.Filters{Component: "auth"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "auth-chunk", results[0].Chunk.ChunkID)
}

func TestEngine_Search_ExpandsComparisonQueries(t *testing.T) {
	var capturedQuery string
	kw := &recordingKeywordStore{onSearch: func(q string) { capturedQuery = q }}
	vec := &stubVectorStore{}
	emb := &stubEmbedder{vec: make([]float32, 384)}
	meta := &stubMetadataLookup{}

	engine := newTestEngine(t, kw, vec, emb, meta)

	_, err := engine.Search(context.Background(), "django vs flask", SearchOptions{TopK: 10})
	require.NoError(t, err)
	assert.Equal(t, "django OR flask", capturedQuery)
}

type recordingKeywordStore struct {
	onSearch func(query string)
}

func (s *recordingKeywordStore) CreateIndex(context.Context, string) error { return nil }
func (s *recordingKeywordStore) Bulk(context.Context, []store.DocumentChunk, []string, bool) error {
	return nil
}
func (s *recordingKeywordStore) Search(_ context.Context, query string, _ store.Filters, _ int) ([]store.KeywordHit, error) {
	s.onSearch(query)
	return nil, nil
}
func (s *recordingKeywordStore) DeleteByID(context.Context, []string) error { return nil }
func (s *recordingKeywordStore) Count(context.Context) (int, error)        { return 0, nil }
func (s *recordingKeywordStore) Ping(context.Context) error                { return nil }
func (s *recordingKeywordStore) Close() error                              { return nil }
