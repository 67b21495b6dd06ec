package chunk

import (
	"context"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

var (
	headingPattern  = regexp.MustCompile(`(?m)^(#{1,6})[ \t]+(.+)$`)
	codeFencePattern = regexp.MustCompile("(?s)```.*?```")
	blankLinePattern = regexp.MustCompile(`\n{2,}`)
	htmlTagPattern   = regexp.MustCompile(`(?i)<(div|span|table|p|br|img|iframe)[ >]`)
)

// MarkdownChunker implements the markup format-aware strategy: prefer
// heading/paragraph/code-block boundaries (spec §4.1).
type MarkdownChunker struct{}

// NewMarkdownChunker constructs a markdown/markup chunker.
func NewMarkdownChunker() *MarkdownChunker { return &MarkdownChunker{} }

// SupportedExtensions implements Chunker.
func (c *MarkdownChunker) SupportedExtensions() []string {
	return []string{".md", ".markdown", ".mdx", ".rst", ".adoc", ".asciidoc"}
}

// Chunk implements Chunker.
func (c *MarkdownChunker) Chunk(_ context.Context, file FileInput, capacity int) ([]Segment, error) {
	if strings.TrimSpace(file.Content) == "" {
		return nil, nil
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	content := normalizeEmbeddedHTML(file.Content)

	segments := c.splitByHeadingsAndBlocks(content, capacity)
	if segments == nil {
		// Format-aware splitting failed to locate itself in the source;
		// fall back to character windows (spec §9 weak-inputs rule).
		segments = windowChunk(content, capacity)
	}

	return applyEmptyContentPolicy(content, segments), nil
}

// normalizeEmbeddedHTML runs raw HTML blocks embedded in otherwise
// markdown-ish content (common in docs sites authored as MDX/rST with
// HTML islands) through an HTML->Markdown conversion pass so that
// heading/paragraph boundary detection below sees normalized text. Plain
// markdown content without HTML tags is returned unchanged.
func normalizeEmbeddedHTML(content string) string {
	if !htmlTagPattern.MatchString(content) {
		return content
	}
	converted, err := htmltomarkdown.ConvertString(content)
	if err != nil || strings.TrimSpace(converted) == "" {
		return content
	}
	return converted
}

// splitByHeadingsAndBlocks emits one segment per section (a heading of
// any level through the next heading of any level, plus any text before
// the first heading), further
// splitting any section exceeding capacity at paragraph or fenced
// code-block boundaries. Returns nil if no segment's text can be located
// back in the original content (signals the caller to fall back).
func (c *MarkdownChunker) splitByHeadingsAndBlocks(content string, capacity int) []Segment {
	locs := headingPattern.FindAllStringIndex(content, -1)

	var blockBounds [][2]int
	if len(locs) == 0 {
		blockBounds = [][2]int{{0, len(content)}}
	} else {
		for i, loc := range locs {
			start := loc[0]
			end := len(content)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			blockBounds = append(blockBounds, [2]int{start, end})
		}
		if locs[0][0] > 0 {
			blockBounds = append([][2]int{{0, locs[0][0]}}, blockBounds...)
		}
	}

	var segments []Segment
	searchFrom := 0
	for _, bound := range blockBounds {
		block := content[bound[0]:bound[1]]
		for _, piece := range splitBlockToCapacity(block, capacity) {
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
	}
	return segments
}

// splitBlockToCapacity splits a single heading-delimited block further at
// paragraph boundaries (double newlines) when it exceeds capacity,
// keeping fenced code blocks intact as single units whenever possible.
func splitBlockToCapacity(block string, capacity int) []string {
	if len(block) <= capacity {
		return []string{block}
	}

	// Protect fenced code blocks from paragraph splitting by treating
	// them as atomic units interleaved with surrounding prose.
	var units []string
	last := 0
	for _, fence := range codeFencePattern.FindAllStringIndex(block, -1) {
		if fence[0] > last {
			units = append(units, splitParagraphs(block[last:fence[0]])...)
		}
		units = append(units, block[fence[0]:fence[1]])
		last = fence[1]
	}
	if last < len(block) {
		units = append(units, splitParagraphs(block[last:])...)
	}

	return packToCapacity(units, capacity)
}

func splitParagraphs(text string) []string {
	paras := blankLinePattern.Split(text, -1)
	var out []string
	for _, p := range paras {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

// packToCapacity greedily concatenates adjacent units until the next one
// would exceed capacity, so we don't fragment sections more than needed.
func packToCapacity(units []string, capacity int) []string {
	var out []string
	var cur strings.Builder
	for _, u := range units {
		if cur.Len() > 0 && cur.Len()+len(u) > capacity {
			out = append(out, cur.String())
			cur.Reset()
		}
		if len(u) > capacity {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, u)
			continue
		}
		cur.WriteString(u)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
