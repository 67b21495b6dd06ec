package search

import "regexp"

// comparisonPatterns match the adapter-layer rewrite spec'd in §4.5:
// "X vs Y", "X versus Y", "difference between X and Y", and
// "X compared to Y" all become "X OR Y" before reaching the planner.
var comparisonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^difference between\s+(.+?)\s+and\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+vs\.?\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+versus\s+(.+)$`),
	regexp.MustCompile(`(?i)^(.+?)\s+compared to\s+(.+)$`),
}

// ExpandComparisonQuery rewrites a comparison-style query into an OR
// query over its two terms (spec §4.5 "Query expansion"). Queries that
// match none of the patterns are returned unchanged.
func ExpandComparisonQuery(query string) string {
	for _, pattern := range comparisonPatterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			return match[1] + " OR " + match[2]
		}
	}
	return query
}
