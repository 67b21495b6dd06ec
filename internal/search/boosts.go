package search

import (
	"strings"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

// positionBoost rewards early chunks within their source file (spec
// §4.5 step 7): the introduction of a document is disproportionately
// likely to answer a query about it.
func positionBoost(chunkIndex int) float64 {
	switch chunkIndex {
	case 0:
		return 1.25
	case 1:
		return 1.15
	case 2:
		return 1.10
	default:
		return 1.00
	}
}

// sectionBoost inspects the source path and component for section
// keywords that correlate with how likely a chunk is to be the
// canonical answer for a query (spec §4.5 step 7).
func sectionBoost(sourcePath, component string) float64 {
	haystack := strings.ToLower(sourcePath + " " + component)

	switch {
	case containsAny(haystack, "intro", "overview", "getting-started"):
		return 1.30
	case containsAny(haystack, "topics", "guides"):
		return 1.20
	case containsAny(haystack, "howto", "how-to"):
		return 1.10
	case containsAny(haystack, "ref") || strings.EqualFold(component, "reference"):
		return 1.00
	default:
		return 1.05
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// codeDensityPenalty estimates the fraction of a chunk's content that
// is code (fenced blocks, indented lines, structured-value markers)
// and applies a 0.70 multiplier when that estimate exceeds 70% (spec
// §4.5 step 7): a heavily-code chunk is less likely to satisfy a
// natural-language query than prose covering the same topic.
func codeDensityPenalty(content string) float64 {
	if estimateCodeDensity(content) > 0.70 {
		return 0.70
	}
	return 1.00
}

func estimateCodeDensity(content string) float64 {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return 0
	}

	inFence := false
	var codeLines int
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			codeLines++
			continue
		}
		if inFence {
			codeLines++
			continue
		}
		if strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t") {
			codeLines++
			continue
		}
		if looksLikeStructuredValue(trimmed) {
			codeLines++
		}
	}

	return float64(codeLines) / float64(len(lines))
}

// looksLikeStructuredValue flags lines that read like code/config
// rather than prose: braces, semicolons, assignment/arrow operators,
// or a leading keyword followed by a parenthesis.
func looksLikeStructuredValue(line string) bool {
	if line == "" {
		return false
	}
	switch {
	case strings.HasSuffix(line, "{") || strings.HasSuffix(line, "}") || line == "}":
		return true
	case strings.HasSuffix(line, ";"):
		return true
	case strings.Contains(line, "=>") || strings.Contains(line, ":="):
		return true
	case strings.Contains(line, "func ") || strings.Contains(line, "def ") || strings.Contains(line, "class "):
		return true
	}
	return false
}

// applyBoosts computes the final score for a candidate from its base
// hybrid score and the metadata record used for position/section/code
// boosts (spec §4.5 steps 7-8).
func applyBoosts(base float64, chunk store.DocumentChunk) (final, position, section, code float64) {
	position = positionBoost(chunk.ChunkIndex)
	section = sectionBoost(chunk.SourcePath, chunk.Component)
	code = codeDensityPenalty(chunk.Content)
	final = base * position * section * code
	return final, position, section, code
}
