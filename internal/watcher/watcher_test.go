package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
)

type fakeIndexer struct {
	mu       sync.Mutex
	indexed  [][]string
	removed  []string
}

func (f *fakeIndexer) IndexPaths(_ context.Context, paths []string, _ bool, _ index.ProgressFunc) (index.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]string(nil), paths...)
	f.indexed = append(f.indexed, cp)
	return index.Stats{FilesProcessed: len(paths)}, nil
}

func (f *fakeIndexer) RemovePath(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, path)
	return nil
}

func (f *fakeIndexer) snapshot() ([][]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.indexed, f.removed
}

func TestWatcher_CreateTriggersIndexPaths(t *testing.T) {
	dir := t.TempDir()
	idx := &fakeIndexer{}

	w, err := New(dir, idx, Options{DebounceWindow: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	path := filepath.Join(dir, "new.md")
	require.NoError(t, os.WriteFile(path, []byte("# New\n"), 0o644))

	assert.Eventually(t, func() bool {
		indexed, _ := idx.snapshot()
		return len(indexed) > 0
	}, time.Second, 10*time.Millisecond)
}

func TestIsDeniedDir(t *testing.T) {
	assert.True(t, isDeniedDir(".git"))
	assert.True(t, isDeniedDir("node_modules"))
	assert.False(t, isDeniedDir("docs"))
}
