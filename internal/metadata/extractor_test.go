package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_TechAndVersionFromPathPrefix(t *testing.T) {
	p := Extract("django-4.2/models/fields.md", "# Fields\nSome content.")
	assert.Equal(t, "django", p.Tech)
	assert.Equal(t, "4.2", p.Version)
	assert.Equal(t, "Fields", p.Topic)
}

func TestExtract_UnknownTechWhenNoPrefixMatches(t *testing.T) {
	p := Extract("random/project/guide.md", "no heading here")
	assert.Equal(t, Unknown, p.Tech)
	assert.Equal(t, Unknown, p.Version)
}

func TestExtract_ComponentSkipsTechAndNumericAndRoot(t *testing.T) {
	p := Extract("django-4.2/docs/models/fields.md", "content")
	assert.Equal(t, "models", p.Component)
}

func TestExtract_TopicFallsBackToHumanizedFilename(t *testing.T) {
	p := Extract("drf-3.14/serializers/custom_fields.md", "no heading in first lines")
	assert.Equal(t, "Custom Fields", p.Topic)
}

func TestExtract_TopicClippedTo100Chars(t *testing.T) {
	p := Extract("a/b.md", "# "+repeat("x", 150))
	assert.LessOrEqual(t, len(p.Topic), 100)
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
