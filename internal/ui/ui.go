// Package ui renders index_paths progress to a terminal: a rich
// bubbletea progress bar for interactive TTYs, plain text lines
// everywhere else (CI logs, pipes, redirected output). Condensed from
// a larger progress-dashboard package down to the single workflow this
// module's CLI drives: indexing progress, not a multi-panel dashboard.
package ui

import (
	"context"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
)

// Renderer displays index_paths progress and its final result.
type Renderer interface {
	Start(ctx context.Context) error
	UpdateProgress(event index.ProgressEvent)
	Complete(stats index.Stats)
	Stop() error
}

// Config configures a Renderer.
type Config struct {
	Output     io.Writer
	ForcePlain bool
	NoColor    bool
}

// NewRenderer picks a TUI renderer for interactive terminals and a
// plain renderer for everything else (pipes, CI, --no-tui).
func NewRenderer(cfg Config) Renderer {
	if cfg.ForcePlain || !IsTTY(cfg.Output) || DetectCI() {
		return NewPlainRenderer(cfg)
	}
	tui, err := NewTUIRenderer(cfg)
	if err != nil {
		return NewPlainRenderer(cfg)
	}
	return tui
}

// IsTTY reports whether w is a terminal file descriptor.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor reports whether NO_COLOR is set (https://no-color.org).
func DetectNoColor() bool {
	_, ok := os.LookupEnv("NO_COLOR")
	return ok
}

// DetectCI reports whether a common CI environment variable is set.
func DetectCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"} {
		if _, ok := os.LookupEnv(v); ok {
			return true
		}
	}
	return false
}
