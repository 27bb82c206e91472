package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	pg_query "github.com/pganalyze/pg_query_go/v6"
	"golang.org/x/sync/errgroup"
)

// LoadGlobs reads every SQL file matched by the given glob patterns,
// parses them concurrently, and builds one catalog. Statements are merged
// in sorted path order so the resulting catalog is deterministic
// regardless of filesystem iteration order. Unqualified names are
// qualified with defaultSchema (empty means "public").
func LoadGlobs(ctx context.Context, patterns []string, defaultSchema string) (*Catalog, error) {
	var paths []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				paths = append(paths, m)
			}
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no schema files matched %v", patterns)
	}
	sort.Strings(paths)
	return LoadFiles(ctx, paths, defaultSchema)
}

// LoadFiles parses the given SQL files concurrently and builds one
// catalog, merging statements in the given path order.
func LoadFiles(ctx context.Context, paths []string, defaultSchema string) (*Catalog, error) {
	parsed := make([]*pg_query.ParseResult, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			result, err := pg_query.Parse(string(src))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			parsed[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cat := New(defaultSchema)
	for i, result := range parsed {
		if err := cat.Append(result.Stmts, paths[i]); err != nil {
			return nil, fmt.Errorf("%s: %w", paths[i], err)
		}
	}
	return cat, nil
}
