package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// AllowedExtensions is the fixed allow-list of file extensions the
// Dual-Store Writer's enumeration step considers indexable (spec §4.4
// step 1). Extensions are matched case-insensitively.
var AllowedExtensions = map[string]struct{}{
	".md": {}, ".markdown": {}, ".mdx": {}, ".rst": {}, ".adoc": {}, ".asciidoc": {},
	".txt": {}, ".log": {},
	".go": {}, ".py": {}, ".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {},
	".java": {}, ".c": {}, ".h": {}, ".cpp": {}, ".hpp": {}, ".cc": {},
	".rs": {}, ".rb": {}, ".php": {}, ".cs": {}, ".kt": {}, ".swift": {},
	".scala": {}, ".sh": {}, ".sql": {},
	".yaml": {}, ".yml": {}, ".json": {}, ".toml": {}, ".ini": {}, ".cfg": {},
}

// DeniedDirectories is the fixed deny-list of directory basenames the
// enumeration step never descends into (spec §4.4 step 1).
var DeniedDirectories = map[string]struct{}{
	".git": {}, "node_modules": {}, ".index": {},
	"venv": {}, ".venv": {}, "env": {}, ".env": {}, "virtualenv": {},
	"__pycache__": {}, ".mypy_cache": {}, ".pytest_cache": {}, ".ruff_cache": {},
	".cache": {}, ".tox": {}, "dist": {}, "build": {}, "target": {}, "vendor": {},
	".DS_Store": {},
}

// ScanOptions tunes enumeration.
type ScanOptions struct {
	// RespectGitignore additionally excludes paths matched by a
	// .gitignore file at the scan root, beyond the fixed deny-list
	// (SPEC_FULL.md Supplemented Feature #5).
	RespectGitignore bool
}

// ScanPaths walks each of roots and returns the absolute paths of every
// file whose extension is in AllowedExtensions and whose containing
// directories are all outside DeniedDirectories, in deterministic
// (lexical) order so that index_paths processes files in a stable
// arrival order across runs.
func ScanPaths(roots []string, opts ScanOptions) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string

	for _, root := range roots {
		absRoot, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}

		var ignore *gitignoreMatcher
		if opts.RespectGitignore {
			ignore = loadGitignore(absRoot)
		}

		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if isAllowedFile(absRoot) {
				if _, dup := seen[absRoot]; !dup {
					seen[absRoot] = struct{}{}
					out = append(out, absRoot)
				}
			}
			continue
		}

		walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil // I/O error enumerating: skip, don't abort the whole scan
			}
			if d.IsDir() {
				if path != absRoot && isDeniedDir(d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}
			if !isAllowedFile(path) {
				return nil
			}
			rel, relErr := filepath.Rel(absRoot, path)
			if relErr == nil && ignore != nil && ignore.match(rel) {
				return nil
			}
			if _, dup := seen[path]; dup {
				return nil
			}
			seen[path] = struct{}{}
			out = append(out, path)
			return nil
		})
		if walkErr != nil {
			return nil, walkErr
		}
	}

	sort.Strings(out)
	return out, nil
}

func isAllowedFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := AllowedExtensions[ext]
	return ok
}

func isDeniedDir(name string) bool {
	_, ok := DeniedDirectories[name]
	return ok
}

func loadGitignore(root string) *gitignoreMatcher {
	data, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return newGitignoreMatcher(string(data))
}
