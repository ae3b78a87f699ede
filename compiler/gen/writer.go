package gen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"
)

// Generate writes one file per table into the target directory and
// returns the written paths in the order of tables. Tables whose names map
// to the same file are rejected before anything is written.
func Generate(ctx context.Context, tables []Table, opts ...Option) ([]string, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if len(tables) == 0 {
		return nil, NewConfigError("Tables", nil, "no tables to generate")
	}
	seen := make(map[string]string, len(tables))
	for _, t := range tables {
		name := FileName(t.Name)
		if prev, ok := seen[name]; ok {
			return nil, NewConfigError("Tables", t.Name, fmt.Sprintf("generates %s like %s", name, prev))
		}
		seen[name] = t.Name
	}
	if err := os.MkdirAll(c.Target, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	paths := make([]string, len(tables))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(c.Workers)
	for i, t := range tables {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			path, err := writeFile(c, t)
			if err != nil {
				return &GenerationError{Table: t.Name, Cause: err}
			}
			paths[i] = path
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// writeFile renders the entity of a table, formats it with goimports and
// writes it. The unformatted source is kept next to the target when
// formatting fails.
func writeFile(c *Config, t Table) (string, error) {
	src, err := Render(c, t)
	if err != nil {
		return "", err
	}
	path := filepath.Join(c.Target, FileName(t.Name))
	formatted, err := imports.Process(path, src, nil)
	if err != nil {
		debugPath := path + ".error"
		_ = os.WriteFile(debugPath, src, 0o644)
		return "", fmt.Errorf("format %s: %w (unformatted written to %s)", path, err, debugPath)
	}
	if err := os.WriteFile(path, formatted, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
