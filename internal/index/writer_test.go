package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/embed"
	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	stateDir := t.TempDir()

	kw, err := store.NewBleveKeywordStore("")
	require.NoError(t, err)
	t.Cleanup(func() { kw.Close() })

	vec, err := store.NewHNSWVectorStore(embed.Dimension)
	require.NoError(t, err)
	t.Cleanup(func() { vec.Close() })

	tracker, err := store.NewJSONChangeTracker(filepath.Join(stateDir, "checksums.json"), 1)
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })

	cache := store.NewMetadataCache()
	cachePath := filepath.Join(stateDir, "cache.bin")

	w, err := NewWriter(WriterDeps{
		Keyword:  kw,
		Vector:   vec,
		Cache:    cache,
		Tracker:  tracker,
		Embedder: embed.NewStaticEmbedder(),
		Permits:  NewPermitManager(),
	}, cachePath, DefaultWriterConfig())
	require.NoError(t, err)
	return w, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWriter_IndexPaths_AddsChunksToBothStoresAndCache(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "django/4.2/models.md", "# Models\n\nDjango models map to database tables.\n")

	stats, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Greater(t, stats.ChunksAdded, 0)
	assert.Equal(t, stats.ChunksAdded, w.cache.Count())

	count, err := w.keyword.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ChunksAdded, count)

	vcount, err := w.vector.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, stats.ChunksAdded, vcount)
}

func TestWriter_IndexPaths_UnchangedFileSkippedOnSecondRun(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "flask/routing.md", "Flask routes map URLs to view functions.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)

	stats, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesProcessed)
}

func TestWriter_IndexPaths_ForceReindexesUnchangedFile(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "flask/routing.md", "Flask routes map URLs to view functions.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)

	stats, err := w.IndexPaths(context.Background(), []string{dir}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesProcessed)
}

func TestWriter_IndexPaths_EditedFileIsRemovedThenReinserted(t *testing.T) {
	w, dir := newTestWriter(t)
	path := writeFile(t, dir, "flask/routing.md", "Flask routes map URLs to view functions.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	firstCount := w.cache.Count()
	require.Greater(t, firstCount, 0)

	require.NoError(t, os.WriteFile(path, []byte("Flask routes map URLs to view functions, now with much more detail about blueprints and the application factory pattern so the chunker produces a different segmentation.\n"), 0o644))

	stats, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesUpdated)
	assert.Greater(t, stats.ChunksRemoved, 0)

	for _, c := range w.cache.All() {
		assert.Equal(t, path, c.SourcePath)
	}
}

func TestWriter_ClearTech_RemovesOnlyThatTech(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "django/models.md", "Django models map to database tables.\n")
	writeFile(t, dir, "flask/routing.md", "Flask routes map URLs to view functions.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	totalBefore := w.cache.Count()
	require.Greater(t, totalBefore, 0)

	require.NoError(t, w.ClearTech(context.Background(), "django"))

	for _, c := range w.cache.All() {
		assert.NotEqual(t, "django", c.Tech)
	}
	assert.Less(t, w.cache.Count(), totalBefore)

	kwCount, err := w.keyword.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, w.cache.Count(), kwCount)
}

func TestWriter_ClearAll_EmptiesEverythingAndRemovesCacheFile(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "django/models.md", "Django models map to database tables.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	require.Greater(t, w.cache.Count(), 0)
	require.NoError(t, w.persistCache())

	require.NoError(t, w.ClearAll(context.Background()))

	assert.Equal(t, 0, w.cache.Count())
	kwCount, err := w.keyword.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, kwCount)

	_, statErr := os.Stat(w.cachePath)
	assert.True(t, os.IsNotExist(statErr))

	changed, err := w.tracker.HasChanged(context.Background(), filepath.Join(dir, "django/models.md"), []byte("anything"))
	require.NoError(t, err)
	assert.True(t, changed, "tracker state must be reset so a later reindex is not skipped")
}

// failingVectorStore fails every Upsert, used to exercise flushBatch's
// rollback path (spec §4.4 failure semantics).
type failingVectorStore struct {
	store.VectorStore
}

func (f failingVectorStore) Upsert(context.Context, []store.VectorPoint) error {
	return errors.New("simulated vector store outage")
}

func TestWriter_FlushBatch_VectorFailureRollsBackKeywordInsert(t *testing.T) {
	w, dir := newTestWriter(t)
	writeFile(t, dir, "django/models.md", "Django models map to database tables with quite a lot of additional explanatory text so at least one chunk is produced reliably.\n")

	realVector := w.vector
	w.vector = failingVectorStore{VectorStore: realVector}

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.Error(t, err)

	assert.Equal(t, 0, w.cache.Count())
	kwCount, err := w.keyword.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, kwCount, "keyword inserts from the failed batch must have been rolled back")
}

func TestWriter_RemovePath_DeletesChunksAndForgetsTracker(t *testing.T) {
	w, dir := newTestWriter(t)
	path := writeFile(t, dir, "django/models.md", "Django models map to database tables with enough content to produce a chunk.\n")

	_, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	require.Greater(t, w.cache.Count(), 0)

	require.NoError(t, w.RemovePath(context.Background(), path))

	assert.Equal(t, 0, w.cache.Count())
	kwCount, err := w.keyword.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, kwCount)

	changed, err := w.tracker.HasChanged(context.Background(), path, []byte("anything"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestWriter_RemovePath_UnknownPathIsANoOp(t *testing.T) {
	w, dir := newTestWriter(t)
	require.NoError(t, w.RemovePath(context.Background(), filepath.Join(dir, "never-indexed.md")))
}

func TestWriter_IndexPaths_NoFilesIsANoOp(t *testing.T) {
	w, dir := newTestWriter(t)
	stats, err := w.IndexPaths(context.Background(), []string{dir}, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesProcessed)
	assert.Equal(t, 0, stats.Errors)
}

func TestNewWriter_MissingDependencyFails(t *testing.T) {
	_, err := NewWriter(WriterDeps{}, "", DefaultWriterConfig())
	assert.Error(t, err)
}
