package chunk

import (
	"context"
	"strings"
)

// lineOffsets computes (startLine, endLine) for a sub-slice of content
// identified by its byte offset and length, per the line-mapping
// contract: start_line is the count of '\n' preceding the first
// character; end_line = start_line + newline_count(chunk).
func lineOffsets(fullContent string, offset, length int) (start, end int) {
	start = strings.Count(fullContent[:offset], "\n")
	chunkText := fullContent[offset : offset+length]
	end = start + strings.Count(chunkText, "\n")
	return start, end
}

// windowChunk slices content into contiguous capacity-sized windows. This
// is the universal fallback (spec §4.1 Fallback, and §9 Weak-inputs
// rule): used for unknown file types, and for any file where
// format-aware splitting cannot locate its own output back in the
// original text.
func windowChunk(content string, capacity int) []Segment {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	var segments []Segment
	offset := 0
	n := len(content)
	for offset < n {
		end := offset + capacity
		if end > n {
			end = n
		}
		piece := content[offset:end]
		if strings.TrimSpace(piece) != "" {
			start, endLine := lineOffsets(content, offset, len(piece))
			segments = append(segments, Segment{Content: piece, StartLine: start, EndLine: endLine})
		}
		offset = end
	}
	return segments
}

// applyEmptyContentPolicy implements spec §4.1's empty-content policy: a
// trimmed-empty file yields zero chunks; a file whose splits all
// collapsed to whitespace yields one chunk containing the whole file.
func applyEmptyContentPolicy(content string, segments []Segment) []Segment {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	if len(segments) == 0 {
		start, end := lineOffsets(content, 0, len(content))
		return []Segment{{Content: content, StartLine: start, EndLine: end}}
	}
	return segments
}

// locateInSource finds candidate text inside fullContent, tolerant of
// leading/trailing whitespace normalization, returning its byte offset
// or -1 if no match is found (spec §9: "substring miss after whitespace
// normalization" triggers the character-window fallback for that file).
func locateInSource(fullContent, candidate string, searchFrom int) int {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return -1
	}
	idx := strings.Index(fullContent[searchFrom:], trimmed)
	if idx == -1 {
		return -1
	}
	return searchFrom + idx
}

// FallbackChunker implements the character-window strategy used for
// unknown file types and as the escape hatch for failed format-aware
// splits.
type FallbackChunker struct{}

// NewFallbackChunker returns the universal window chunker.
func NewFallbackChunker() *FallbackChunker { return &FallbackChunker{} }

// Chunk implements Chunker.
func (c *FallbackChunker) Chunk(_ context.Context, file FileInput, capacity int) ([]Segment, error) {
	segments := windowChunk(file.Content, capacity)
	return applyEmptyContentPolicy(file.Content, segments), nil
}

// SupportedExtensions implements Chunker; the fallback has none of its
// own, it is selected by exclusion.
func (c *FallbackChunker) SupportedExtensions() []string { return nil }
