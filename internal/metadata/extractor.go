// Package metadata implements the Metadata Extractor (spec §4.2): a pure
// function of a file's path and its first ~20 lines of content that
// derives (tech, component, version, topic) provenance for a chunk.
package metadata

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Unknown is the reserved sentinel for fields that cannot be derived.
const Unknown = "unknown"

// KnownTechPrefixes is the small reserved prefix table used to recognize
// a technology from the first matching path segment (spec §4.2).
var KnownTechPrefixes = []string{
	"django-", "drf-", "psycopg-", "flask-", "fastapi-", "react-",
	"vue-", "angular-", "express-", "rails-", "laravel-", "spring-",
}

// KnownTechExact is a small reserved set of exact-match technology names.
var KnownTechExact = map[string]struct{}{
	"django": {}, "drf": {}, "psycopg": {}, "flask": {}, "fastapi": {},
	"react": {}, "vue": {}, "angular": {}, "express": {}, "rails": {},
	"laravel": {}, "spring": {}, "kubernetes": {}, "docker": {},
}

var versionPattern = regexp.MustCompile(`\b(\d+\.\d+(?:\.\d+)?)\b`)
var headingPattern = regexp.MustCompile(`(?m)^\s{0,3}#{1,6}\s*(.+)$`)

// Provenance is the extracted (tech, component, version, topic) tuple.
type Provenance struct {
	Tech      string
	Component string
	Version   string
	Topic     string
}

// Extract derives provenance from a file's repo-relative path and the
// first ~20 lines of its content. It is a pure function: identical
// inputs always yield an identical result.
func Extract(relPath, content string) Provenance {
	segments := splitPathSegments(relPath)
	tech, techSegment := extractTech(segments)
	version := extractVersion(techSegment)
	component := extractComponent(segments, tech)
	topic := extractTopic(content, relPath)

	return Provenance{Tech: tech, Component: component, Version: version, Topic: topic}
}

func splitPathSegments(relPath string) []string {
	cleaned := strings.Trim(filepath.ToSlash(relPath), "/")
	if cleaned == "" {
		return nil
	}
	return strings.Split(cleaned, "/")
}

// extractTech returns the technology drawn from the first path segment
// matching a known prefix or exact name, plus the matched segment (for
// version extraction), else Unknown.
func extractTech(segments []string) (tech, matchedSegment string) {
	for _, seg := range segments {
		lower := strings.ToLower(seg)
		for _, prefix := range KnownTechPrefixes {
			if strings.HasPrefix(lower, prefix) {
				return strings.TrimSuffix(prefix, "-"), seg
			}
		}
		if _, ok := KnownTechExact[lower]; ok {
			return lower, seg
		}
	}
	return Unknown, ""
}

// extractVersion finds the first MAJOR.MINOR[.PATCH] pattern in the
// matched tech segment, validating it with semver where possible so that
// pathological numeric strings (dates, issue numbers) don't false-match.
func extractVersion(segment string) string {
	if segment == "" {
		return Unknown
	}
	m := versionPattern.FindString(segment)
	if m == "" {
		return Unknown
	}
	normalized := m
	if strings.Count(m, ".") == 1 {
		normalized = m + ".0"
	}
	if _, err := semver.NewVersion(normalized); err != nil {
		return Unknown
	}
	return m
}

// extractComponent returns the nearest ancestor directory that is not
// the tech name, the documentation root, or purely numeric.
func extractComponent(segments []string, tech string) string {
	// Exclude the final segment (the file itself).
	dirs := segments
	if len(dirs) > 0 {
		dirs = dirs[:len(dirs)-1]
	}

	for i := len(dirs) - 1; i >= 0; i-- {
		candidate := dirs[i]
		lower := strings.ToLower(candidate)
		if lower == strings.ToLower(tech) {
			continue
		}
		if isDocRoot(lower) {
			continue
		}
		if isPurelyNumeric(candidate) {
			continue
		}
		return candidate
	}
	return Unknown
}

func isDocRoot(name string) bool {
	switch name {
	case "docs", "doc", "documentation", "content", "src", "source", ".":
		return true
	default:
		return false
	}
}

func isPurelyNumeric(s string) bool {
	if s == "" {
		return false
	}
	_, err := strconv.ParseFloat(strings.ReplaceAll(s, "-", "."), 64)
	if err == nil {
		return true
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			if r != '.' && r != '-' && r != 'v' && r != 'V' {
				return false
			}
		}
	}
	return s != ""
}

// extractTopic returns the first markup heading in the first ~20 lines
// of content, clipped to 100 characters; else a humanized filename stem.
func extractTopic(content, relPath string) string {
	lines := strings.Split(content, "\n")
	limit := 20
	if len(lines) < limit {
		limit = len(lines)
	}
	head := strings.Join(lines[:limit], "\n")

	if m := headingPattern.FindStringSubmatch(head); m != nil {
		topic := strings.TrimSpace(m[1])
		topic = strings.Trim(topic, "#= \t")
		if len(topic) > 100 {
			topic = topic[:100]
		}
		if topic != "" {
			return topic
		}
	}

	return humanizeFilename(relPath)
}

var filenameDelimiters = regexp.MustCompile(`[-_.]+`)

// humanizeFilename converts a path's filename stem into a title-cased
// phrase by replacing delimiters with spaces.
func humanizeFilename(relPath string) string {
	base := filepath.Base(relPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	words := filenameDelimiters.Split(stem, -1)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
