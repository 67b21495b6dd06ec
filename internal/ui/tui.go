package ui

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/index"
)

// TUIRenderer drives a bubbletea program showing a live progress bar
// while index_paths runs.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	program *tea.Program
	done    chan struct{}
	started bool
}

// NewTUIRenderer creates a TUI renderer. It fails if cfg.Output is not
// a TTY, since bubbletea requires one.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, fmt.Errorf("ui: output is not a TTY")
	}
	return &TUIRenderer{cfg: cfg, done: make(chan struct{})}, nil
}

// Start implements Renderer.
func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}

	styles := DefaultStyles()
	if r.cfg.NoColor || DetectNoColor() {
		styles = NoColorStyles()
	}
	model := newIndexModel(styles)

	var opts []tea.ProgramOption
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(model, opts...)
	r.started = true

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

// UpdateProgress implements Renderer.
func (r *TUIRenderer) UpdateProgress(event index.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(progressMsg(event))
	}
}

// Complete implements Renderer.
func (r *TUIRenderer) Complete(stats index.Stats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.program != nil {
		r.program.Send(completeMsg(stats))
	}
}

// Stop implements Renderer.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	program := r.program
	r.mu.Unlock()
	if program == nil {
		return nil
	}
	program.Quit()
	<-r.done
	return nil
}

type progressMsg index.ProgressEvent
type completeMsg index.Stats

type indexModel struct {
	styles Styles
	bar    progress.Model
	event  index.ProgressEvent
	stats  *index.Stats
}

func newIndexModel(styles Styles) *indexModel {
	return &indexModel{
		styles: styles,
		bar:    progress.New(progress.WithDefaultGradient()),
	}
}

func (m *indexModel) Init() tea.Cmd { return nil }

func (m *indexModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case progressMsg:
		m.event = index.ProgressEvent(msg)
		return m, nil
	case completeMsg:
		stats := index.Stats(msg)
		m.stats = &stats
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *indexModel) View() string {
	if m.stats != nil {
		return m.styles.Header.Render("Indexing complete") + fmt.Sprintf(
			"\n%d files (%d updated), %d chunks added, %d removed, %d errors\n",
			m.stats.FilesProcessed, m.stats.FilesUpdated, m.stats.ChunksAdded, m.stats.ChunksRemoved, m.stats.Errors)
	}

	ratio := 0.0
	if m.event.FilesTotal > 0 {
		ratio = float64(m.event.FilesDone) / float64(m.event.FilesTotal)
	}
	header := m.styles.Header.Render(fmt.Sprintf("[%s]", m.event.Stage))
	detail := m.styles.Dim.Render(m.event.CurrentFile)
	return fmt.Sprintf("%s %s\n%s\n", header, detail, m.bar.ViewAs(ratio))
}
