package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitVector(dim, hot int) []float32 {
	v := make([]float32, dim)
	v[hot] = 1.0
	return v
}

func TestHNSWVectorStore_UpsertAndQuery_FindsNearest(t *testing.T) {
	s, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.Upsert(context.Background(), []VectorPoint{
		{ChunkID: "a", Vector: unitVector(4, 0), Payload: VectorPayload{Tech: "django"}},
		{ChunkID: "b", Vector: unitVector(4, 1), Payload: VectorPayload{Tech: "flask"}},
	})
	require.NoError(t, err)

	hits, err := s.Query(context.Background(), unitVector(4, 0), Filters{}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ChunkID)
}

func TestHNSWVectorStore_Query_AppliesPayloadFilter(t *testing.T) {
	s, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(context.Background(), []VectorPoint{
		{ChunkID: "a", Vector: unitVector(4, 0), Payload: VectorPayload{Tech: "django"}},
		{ChunkID: "b", Vector: unitVector(4, 0), Payload: VectorPayload{Tech: "flask"}},
	}))

	hits, err := s.Query(context.Background(), unitVector(4, 0), Filters{Tech: "flask"}, 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b", hits[0].ChunkID)
}

func TestHNSWVectorStore_Upsert_RejectsDimensionMismatch(t *testing.T) {
	s, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	err = s.Upsert(context.Background(), []VectorPoint{{ChunkID: "a", Vector: []float32{1, 2}}})
	assert.ErrorAs(t, err, &ErrDimensionMismatch{})
}

func TestHNSWVectorStore_Delete_RemovesFromResults(t *testing.T) {
	s, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Upsert(context.Background(), []VectorPoint{
		{ChunkID: "a", Vector: unitVector(4, 0)},
	}))
	require.NoError(t, s.Delete(context.Background(), []string{"a"}))

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestHNSWVectorStore_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.hnsw")

	s, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(context.Background(), []VectorPoint{
		{ChunkID: "a", Vector: unitVector(4, 0), Payload: VectorPayload{Tech: "django"}},
	}))
	require.NoError(t, s.Save(path))
	require.NoError(t, s.Close())

	restored, err := NewHNSWVectorStore(4)
	require.NoError(t, err)
	defer func() { _ = restored.Close() }()
	require.NoError(t, restored.Load(path))

	count, err := restored.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
