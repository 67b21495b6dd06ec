package cmd

import (
	"context"
	"fmt"

	"github.com/buzzwomen-dev2/docs-mcp-server/internal/config"
	"github.com/buzzwomen-dev2/docs-mcp-server/pkg/docscore"
)

// openEngine loads config for the current --index-dir/--config flags
// and constructs an Engine. Callers must Close() it.
func openEngine(ctx context.Context) (*docscore.Engine, error) {
	cfg, err := config.Load(configPath, indexDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	engine, err := docscore.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open index at %s: %w", indexDir, err)
	}
	return engine, nil
}
