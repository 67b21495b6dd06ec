package index

import (
	"path/filepath"
	"strings"
)

// gitignoreMatcher is a condensed gitignore-pattern matcher covering the
// common subset a dedicated gitignore parser would support
// (comments, blank lines, negation, anchored vs. unanchored patterns,
// directory-only patterns); glob matching itself is delegated to
// filepath.Match rather than hand-rolling a second wildcard engine.
type gitignoreMatcher struct {
	rules []gitignoreRule
}

type gitignoreRule struct {
	pattern  string
	negation bool
	dirOnly  bool
	anchored bool
}

func newGitignoreMatcher(data string) *gitignoreMatcher {
	m := &gitignoreMatcher{}
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rule := gitignoreRule{pattern: trimmed}
		if strings.HasPrefix(rule.pattern, "!") {
			rule.negation = true
			rule.pattern = rule.pattern[1:]
		}
		if strings.HasSuffix(rule.pattern, "/") {
			rule.dirOnly = true
			rule.pattern = strings.TrimSuffix(rule.pattern, "/")
		}
		if strings.Contains(rule.pattern, "/") {
			rule.anchored = true
		}
		rule.pattern = strings.TrimPrefix(rule.pattern, "/")
		m.rules = append(m.rules, rule)
	}
	return m
}

// match reports whether relPath (slash-separated, relative to the scan
// root) is ignored, applying rules in file order so a later negation
// rule can override an earlier match (gitignore semantics).
func (m *gitignoreMatcher) match(relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	ignored := false
	for _, r := range m.rules {
		if r.matches(relPath) {
			ignored = !r.negation
		}
	}
	return ignored
}

func (r gitignoreRule) matches(relPath string) bool {
	base := filepath.Base(relPath)

	if r.anchored {
		if ok, _ := filepath.Match(r.pattern, relPath); ok {
			return true
		}
		// An anchored pattern that names a directory also covers every
		// path beneath it.
		parts := strings.Split(relPath, "/")
		for i := 1; i < len(parts); i++ {
			if ok, _ := filepath.Match(r.pattern, strings.Join(parts[:i], "/")); ok {
				return true
			}
		}
		return false
	}

	if ok, _ := filepath.Match(r.pattern, base); ok {
		return true
	}
	// Unanchored pattern also matches against any path segment, since
	// gitignore treats a bare "name" as matching at any depth.
	for _, seg := range strings.Split(relPath, "/") {
		if ok, _ := filepath.Match(r.pattern, seg); ok {
			return true
		}
	}
	return false
}
