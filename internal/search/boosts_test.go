package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/store"
)

func TestPositionBoost_MatchesSpecTable(t *testing.T) {
	assert.Equal(t, 1.25, positionBoost(0))
	assert.Equal(t, 1.15, positionBoost(1))
	assert.Equal(t, 1.10, positionBoost(2))
	assert.Equal(t, 1.00, positionBoost(3))
	assert.Equal(t, 1.00, positionBoost(99))
}

func TestSectionBoost_MatchesSpecTable(t *testing.T) {
	assert.Equal(t, 1.30, sectionBoost("/docs/getting-started/install.md", ""))
	assert.Equal(t, 1.30, sectionBoost("/docs/intro/index.md", ""))
	assert.Equal(t, 1.20, sectionBoost("/docs/topics/auth.md", ""))
	assert.Equal(t, 1.20, sectionBoost("/docs/guides/deploy.md", ""))
	assert.Equal(t, 1.10, sectionBoost("/docs/howto/configure.md", ""))
	assert.Equal(t, 1.00, sectionBoost("/docs/ref/api.md", ""))
	assert.Equal(t, 1.00, sectionBoost("/docs/misc.md", "reference"))
	assert.Equal(t, 1.05, sectionBoost("/docs/misc/other.md", "misc"))
}

func TestCodeDensityPenalty_AppliesWhenMostlyCode(t *testing.T) {
	codeHeavy := "```go\nfunc main() {\n    x := 1;\n    fmt.Println(x)\n}\n```\nmore code\n```\nx := 2;\ny := 3;\n```"
	assert.Equal(t, 0.70, codeDensityPenalty(codeHeavy))
}

func TestCodeDensityPenalty_NoneForProse(t *testing.T) {
	prose := "This guide explains how authentication works in the system.\nIt covers tokens, sessions, and refresh flows in plain language.\nNo code here at all, just words describing behavior."
	assert.Equal(t, 1.00, codeDensityPenalty(prose))
}

func TestApplyBoosts_CombinesMultiplicatively(t *testing.T) {
	chunk := store.DocumentChunk{
		ChunkIndex: 0,
		SourcePath: "/docs/intro/welcome.md",
		Component:  "intro",
		Content:    "Welcome to the docs. This is plain prose with no code at all.",
	}

	final, position, section, code := applyBoosts(0.5, chunk)
	assert.Equal(t, 1.25, position)
	assert.Equal(t, 1.30, section)
	assert.Equal(t, 1.00, code)
	assert.InDelta(t, 0.5*1.25*1.30*1.00, final, 0.0001)
}
