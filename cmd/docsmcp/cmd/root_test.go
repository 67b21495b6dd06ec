package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_HasAllSubcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make(map[string]bool)
	for _, sc := range cmd.Commands() {
		names[sc.Name()] = true
	}

	for _, want := range []string{"index", "search", "stats", "sources", "clear"} {
		assert.True(t, names[want], "expected subcommand %q", want)
	}
}

func TestIndexAndSearchCmd_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	docsDir := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(docsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(docsDir, "a.md"), []byte("# Auth\n\nUse ForeignKey to relate models.\n"), 0o644))

	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--index-dir", dir, "index", "--no-tui", docsDir})
	require.NoError(t, root.ExecuteContext(context.Background()))

	root2 := NewRootCmd()
	var out2 bytes.Buffer
	root2.SetOut(&out2)
	root2.SetArgs([]string{"--index-dir", dir, "search", "ForeignKey"})
	require.NoError(t, root2.ExecuteContext(context.Background()))
	assert.Contains(t, out2.String(), "a.md")
}

func TestClearCmd_RequiresYes(t *testing.T) {
	dir := t.TempDir()
	root := NewRootCmd()
	root.SetArgs([]string{"--index-dir", dir, "clear"})
	err := root.Execute()
	assert.Error(t, err)
}
