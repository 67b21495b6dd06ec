package ui

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
)

// PlainRenderer writes one line per progress event, safe for
// non-interactive output.
type PlainRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewPlainRenderer creates a plain text renderer writing to cfg.Output.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	return &PlainRenderer{out: cfg.Output}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error { return nil }

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event index.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.CurrentFile
	if event.FilesTotal > 0 {
		fmt.Fprintf(r.out, "[%s] %d/%d %s\n", event.Stage, event.FilesDone, event.FilesTotal, msg)
	} else {
		fmt.Fprintf(r.out, "[%s] %s\n", event.Stage, msg)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats index.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "Done: %d files (%d updated), %d chunks added, %d removed, %d errors in %s\n",
		stats.FilesProcessed, stats.FilesUpdated, stats.ChunksAdded, stats.ChunksRemoved, stats.Errors, stats.Duration.Round(1e8))
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error { return nil }
