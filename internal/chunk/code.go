package chunk

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
)

// topLevelNodeTypes lists the tree-sitter node types that mark a
// function/class boundary for each supported language, used to decide
// where a code chunk should start (spec §4.1: "prefer function/class/
// blank-line boundaries").
var topLevelNodeTypes = map[string]map[string]struct{}{
	"go": {
		"function_declaration": {},
		"method_declaration":   {},
		"type_declaration":     {},
	},
	"python": {
		"function_definition": {},
		"class_definition":    {},
	},
	"javascript": {
		"function_declaration": {},
		"class_declaration":    {},
		"method_definition":    {},
	},
}

func treeSitterLanguage(lang string) *sitter.Language {
	switch lang {
	case "go":
		return golang.GetLanguage()
	case "python":
		return python.GetLanguage()
	case "javascript", "jsx":
		return javascript.GetLanguage()
	default:
		return nil
	}
}

// languageForExtension maps a file extension to the language hint
// splitByAST understands. Extensions with no tree-sitter grammar wired
// in (topLevelNodeTypes/treeSitterLanguage) return "", which routes
// straight to the blank-line fallback.
func languageForExtension(ext string) string {
	switch ext {
	case ".go":
		return "go"
	case ".py":
		return "python"
	case ".js", ".jsx":
		return "javascript"
	default:
		return ""
	}
}

// CodeChunker implements the code format-aware strategy: prefer
// function/class/blank-line boundaries, with a capacity roughly
// CodeCapacityMultiplier times the base capacity (spec §4.1).
type CodeChunker struct{}

// NewCodeChunker constructs a code chunker.
func NewCodeChunker() *CodeChunker { return &CodeChunker{} }

// SupportedExtensions implements Chunker.
func (c *CodeChunker) SupportedExtensions() []string {
	return []string{
		".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h",
		".cpp", ".hpp", ".cc", ".rs", ".rb", ".php", ".cs", ".kt", ".swift",
		".scala", ".sh", ".sql",
	}
}

// Chunk implements Chunker.
func (c *CodeChunker) Chunk(ctx context.Context, file FileInput, capacity int) ([]Segment, error) {
	if strings.TrimSpace(file.Content) == "" {
		return nil, nil
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	codeCapacity := capacity * CodeCapacityMultiplier

	segments := c.splitByAST(ctx, file, codeCapacity)
	if segments == nil {
		segments = c.splitByBlankLines(file.Content, codeCapacity)
	}
	if segments == nil {
		segments = windowChunk(file.Content, codeCapacity)
	}

	return applyEmptyContentPolicy(file.Content, segments), nil
}

// splitByAST uses tree-sitter to find top-level symbol boundaries and
// groups the source into chunks that start at a boundary, packed up to
// capacity. Returns nil when the language is unsupported or parsing
// fails, signalling the caller to fall back.
func (c *CodeChunker) splitByAST(ctx context.Context, file FileInput, capacity int) []Segment {
	tsLang := treeSitterLanguage(file.Language)
	boundaryTypes := topLevelNodeTypes[file.Language]
	if tsLang == nil || boundaryTypes == nil {
		return nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)
	defer parser.Close()

	source := []byte(file.Content)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	var boundaries []int // byte offsets where a new chunk should start
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		if _, ok := boundaryTypes[n.Type()]; ok {
			boundaries = append(boundaries, int(n.StartByte()))
			return // don't descend into a symbol we've already boundaried
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)

	if len(boundaries) == 0 {
		return nil
	}

	boundaries = append(boundaries, len(file.Content))
	var pieces []string
	for i := 0; i < len(boundaries)-1; i++ {
		start, end := boundaries[i], boundaries[i+1]
		if end > start {
			pieces = append(pieces, file.Content[start:end])
		}
	}

	packed := packToCapacity(pieces, capacity)

	var segments []Segment
	searchFrom := 0
	for _, piece := range packed {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		offset := locateInSource(file.Content, piece, searchFrom)
		if offset == -1 {
			return nil
		}
		start, end := lineOffsets(file.Content, offset, len(piece))
		segments = append(segments, Segment{Content: piece, StartLine: start, EndLine: end})
		searchFrom = offset
	}
	return segments
}

// splitByBlankLines is the generic code fallback: split on blank-line
// boundaries (likely top-level declaration separators in most C-family
// and scripting languages), then pack to capacity.
func (c *CodeChunker) splitByBlankLines(content string, capacity int) []Segment {
	blocks := blankLinePattern.Split(content, -1)
	var nonEmpty []string
	for _, b := range blocks {
		if strings.TrimSpace(b) != "" {
			nonEmpty = append(nonEmpty, b)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}
	packed := packToCapacity(nonEmpty, capacity)

	var segments []Segment
	searchFrom := 0
	for _, piece := range packed {
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
