// Package chunk splits source file content into an ordered sequence of
// text fragments with line-offset provenance, per spec §4.1. It is
// format-aware (markdown, code, plain text) with a character-window
// fallback for unknown formats or failed format-aware splits.
package chunk

import "context"

// DefaultCapacity is the default target chunk size in characters (~100
// tokens), C here.
const DefaultCapacity = 400

// CodeCapacityMultiplier is how much larger a code chunk's capacity is
// relative to DefaultCapacity (spec §4.1: "~6xC" for code files).
const CodeCapacityMultiplier = 6

// FileKind distinguishes the three format-aware splitting strategies.
type FileKind string

const (
	KindMarkup FileKind = "markup" // markdown/mdx/rst-like: headings, paragraphs, fenced code
	KindCode   FileKind = "code"   // function/class/blank-line boundaries
	KindText   FileKind = "text"   // sentence/paragraph boundaries
	KindUnknown FileKind = "unknown"
)

// Segment is one emitted chunk: a non-empty contiguous text fragment with
// its line offsets within the source file (spec §4.1 line-mapping
// contract: start_line counts preceding '\n's, end_line = start_line +
// newline_count(chunk)).
type Segment struct {
	Content   string
	StartLine int
	EndLine   int
}

// FileInput is the input to a Chunker.
type FileInput struct {
	Path     string
	Content  string
	FileType string // extension including leading dot, e.g. ".md"
	Language string // best-effort language hint for code files
}

// Chunker splits a file into an ordered, non-empty sequence of segments.
type Chunker interface {
	Chunk(ctx context.Context, file FileInput, capacity int) ([]Segment, error)
	SupportedExtensions() []string
}

// KindForExtension classifies a file extension into one of the three
// format-aware strategies, or KindUnknown for the character-window
// fallback (spec §4.1).
func KindForExtension(ext string) FileKind {
	switch ext {
	case ".md", ".markdown", ".mdx", ".rst", ".adoc", ".asciidoc":
		return KindMarkup
	case ".go", ".py", ".js", ".jsx", ".ts", ".tsx", ".java", ".c", ".h",
		".cpp", ".hpp", ".cc", ".rs", ".rb", ".php", ".cs", ".kt", ".swift",
		".scala", ".sh", ".sql":
		return KindCode
	case ".txt", ".log", ".cfg", ".ini", ".toml", ".yaml", ".yml", ".json":
		return KindText
	default:
		return KindUnknown
	}
}
