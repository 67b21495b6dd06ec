// Package watcher is a thin adapter (spec §1: "file-watchers" are
// explicitly out of the core's scope) that turns fsnotify filesystem
// events into incremental index_paths/RemovePath calls, demonstrating
// the non-starving concurrency model of spec §5 end to end. Condensed to fsnotify-only (a polling fallback and hybrid
// dual-mode watcher have no analogue here: this module's core never
// requires watching, only benefits from it as an adapter).
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
)

// Indexer is the subset of pkg/docscore.Engine the watcher drives.
type Indexer interface {
	IndexPaths(ctx context.Context, paths []string, force bool, progress index.ProgressFunc) (index.Stats, error)
	RemovePath(ctx context.Context, path string) error
}

// Options configures debouncing (spec §5: a write permit yields between
// batches, so rapid-fire events naturally coalesce into one call rather
// than one index_paths per event).
type Options struct {
	DebounceWindow time.Duration
}

// DefaultOptions returns the adapter's default debounce window.
func DefaultOptions() Options {
	return Options{DebounceWindow: 200 * time.Millisecond}
}

// Watcher recursively watches a root directory and calls Indexer
// incrementally as files change.
type Watcher struct {
	root    string
	indexer Indexer
	opts    Options

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
}

// New creates a Watcher over root, rooted at root for relative display
// only; indexer paths are always absolute.
func New(root string, indexer Indexer, opts Options) (*Watcher, error) {
	if opts.DebounceWindow == 0 {
		opts = DefaultOptions()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:    root,
		indexer: indexer,
		opts:    opts,
		fsw:     fsw,
		pending: make(map[string]struct{}),
	}, nil
}

// Run adds every directory under root and processes events until ctx is
// cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return w.Close()
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the underlying fsnotify watcher; safe to call once.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if isDeniedDir(d.Name()) {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

// isDeniedDir applies the Dual-Store Writer's fixed deny-list
// (index.DeniedDirectories, spec §4.4 step 1), so the watcher never
// wastes a descriptor on a directory index_paths would have pruned anyway.
func isDeniedDir(name string) bool {
	_, ok := index.DeniedDirectories[name]
	return ok
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	switch {
	case ev.Op&fsnotify.Create != 0, ev.Op&fsnotify.Write != 0:
		w.schedule(ctx, ev.Name)
	case ev.Op&fsnotify.Remove != 0, ev.Op&fsnotify.Rename != 0:
		if err := w.indexer.RemovePath(ctx, ev.Name); err != nil {
			slog.Warn("watcher_remove_path_failed", slog.String("path", ev.Name), slog.String("error", err.Error()))
		}
	}
}

// schedule debounces path into the next batched index_paths call: rapid
// successive writes to the same or different files within
// DebounceWindow become one call, matching spec §5's
// "writer yields between batches" intent at the adapter layer too.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.DebounceWindow, func() { w.flush(ctx) })
}

func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	if _, err := w.indexer.IndexPaths(ctx, paths, false, nil); err != nil {
		slog.Warn("watcher_index_paths_failed", slog.String("error", err.Error()))
	}
}
