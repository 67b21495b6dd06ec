package chunk

import (
	"context"
	"regexp"
	"strings"
)

var sentenceBoundary = regexp.MustCompile(`(?s)([.!?])\s+`)

// TextChunker implements the plain-text format-aware strategy: prefer
// sentence/paragraph boundaries (spec §4.1).
type TextChunker struct{}

// NewTextChunker constructs a plain-text chunker.
func NewTextChunker() *TextChunker { return &TextChunker{} }

// SupportedExtensions implements Chunker.
func (c *TextChunker) SupportedExtensions() []string {
	return []string{".txt", ".log", ".cfg", ".ini", ".toml", ".yaml", ".yml", ".json"}
}

// Chunk implements Chunker.
func (c *TextChunker) Chunk(_ context.Context, file FileInput, capacity int) ([]Segment, error) {
	if strings.TrimSpace(file.Content) == "" {
		return nil, nil
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	segments := c.splitBySentencesAndParagraphs(file.Content, capacity)
	if segments == nil {
		segments = windowChunk(file.Content, capacity)
	}
	return applyEmptyContentPolicy(file.Content, segments), nil
}

func (c *TextChunker) splitBySentencesAndParagraphs(content string, capacity int) []Segment {
	paragraphs := splitParagraphs(content)
	if len(paragraphs) == 0 {
		return nil
	}

	var units []string
	for _, p := range paragraphs {
		if len(p) <= capacity {
			units = append(units, p)
			continue
		}
		sentences := sentenceBoundary.Split(p, -1)
		for _, s := range sentences {
			if strings.TrimSpace(s) != "" {
				units = append(units, s)
			}
		}
	}

	packed := packToCapacity(units, capacity)

	var segments []Segment
	searchFrom := 0
	for _, piece := range packed {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		offset := locateInSource(content, piece, searchFrom)
		if offset == -1 {
			return nil
		}
		start, end := lineOffsets(content, offset, len(piece))
		segments = append(segments, Segment{Content: piece, StartLine: start, EndLine: end})
		searchFrom = offset
	}
	return segments
}
