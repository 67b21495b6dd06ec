package chunk

import "context"

// Dispatcher selects a format-aware Chunker by file kind and falls back
// to the character-window strategy on unknown types or failed splits
// (spec §4.1).
type Dispatcher struct {
	markup   Chunker
	code     Chunker
	text     Chunker
	fallback Chunker
	capacity int
}

// NewDispatcher builds the default dispatcher with the documented default
// capacity (400 characters, ~100 tokens).
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Dispatcher{
		markup:   NewMarkdownChunker(),
		code:     NewCodeChunker(),
		text:     NewTextChunker(),
		fallback: NewFallbackChunker(),
		capacity: capacity,
	}
}

// Chunk splits file content per its extension-derived kind, producing an
// ordered, non-empty sequence of segments.
func (d *Dispatcher) Chunk(ctx context.Context, file FileInput) ([]Segment, error) {
	switch KindForExtension(file.FileType) {
	case KindMarkup:
		return d.markup.Chunk(ctx, file, d.capacity)
	case KindCode:
		if file.Language == "" {
			file.Language = languageForExtension(file.FileType)
		}
		return d.code.Chunk(ctx, file, d.capacity)
	case KindText:
		return d.text.Chunk(ctx, file, d.capacity)
	default:
		return d.fallback.Chunk(ctx, file, d.capacity)
	}
}
