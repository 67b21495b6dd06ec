package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataCache_PutAndGet_RoundTrips(t *testing.T) {
	c := NewMetadataCache()
	chunk := DocumentChunk{ChunkID: "1", Tech: "django", Version: "4.2", Timestamp: time.Now()}
	c.Put(chunk)

	got, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, chunk.Tech, got.Tech)
}

func TestMetadataCache_Get_MissingReturnsNotFound(t *testing.T) {
	c := NewMetadataCache()
	_, err := c.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMetadataCache_DeleteTech_RemovesOnlyThatTech(t *testing.T) {
	c := NewMetadataCache()
	c.PutBatch([]DocumentChunk{
		{ChunkID: "1", Tech: "django"},
		{ChunkID: "2", Tech: "flask"},
	})

	removed := c.DeleteTech("django")
	assert.ElementsMatch(t, []string{"1"}, removed)
	assert.Equal(t, 1, c.Count())

	_, err := c.Get("2")
	assert.NoError(t, err)
}

func TestMetadataCache_Clear_EmptiesCache(t *testing.T) {
	c := NewMetadataCache()
	c.PutBatch([]DocumentChunk{{ChunkID: "1", Tech: "django"}, {ChunkID: "2", Tech: "flask"}})
	c.Clear()
	assert.Equal(t, 0, c.Count())
}

func TestMetadataCache_ListSources_GroupsByTechAndVersion(t *testing.T) {
	c := NewMetadataCache()
	c.PutBatch([]DocumentChunk{
		{ChunkID: "1", Tech: "django", Version: "4.2"},
		{ChunkID: "2", Tech: "django", Version: "4.2"},
		{ChunkID: "3", Tech: "flask", Version: "2.0"},
	})

	sources := c.ListSources()
	require.Len(t, sources, 2)

	byTech := make(map[string]SourceSummary)
	for _, s := range sources {
		byTech[s.Tech] = s
	}
	assert.Equal(t, 2, byTech["django"].ChunkCount)
	assert.Equal(t, 1, byTech["flask"].ChunkCount)
}

func TestMetadataCache_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata_cache.bin")

	c := NewMetadataCache()
	c.Put(DocumentChunk{ChunkID: "1", Tech: "django", Version: "4.2", Timestamp: time.Now()})
	require.NoError(t, c.Save(path))

	restored := NewMetadataCache()
	require.NoError(t, restored.Load(path))
	assert.Equal(t, 1, restored.Count())

	got, err := restored.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "django", got.Tech)
}

func TestMetadataCache_Load_MissingFileLeavesCacheEmpty(t *testing.T) {
	c := NewMetadataCache()
	err := c.Load(filepath.Join(t.TempDir(), "does-not-exist.bin"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count())
}

func TestMetadataCache_Load_CorruptFileFailsClosed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metadata_cache.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a valid cache blob"), 0o644))

	// A corrupt on-disk blob is logged and treated as absent rather
	// than returned as an error, so startup proceeds with an empty
	// cache instead of refusing to start.
	c := NewMetadataCache()
	err := c.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Count())
}
