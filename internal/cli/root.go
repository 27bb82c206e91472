// Package cli implements the pgshape command tree.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"pgshape/internal/analyze"
	"pgshape/internal/catalog"
	"pgshape/internal/config"
	"pgshape/internal/meta"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := newRootCmd().Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "pgshape",
		Short:         "Static analyzer for declarative PostgreSQL schemas",
		Long:          "pgshape parses declarative SQL schema files, derives a safe dependency order among the declared objects, and infers the result shape of views and SQL routines without executing them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to pgshape.yaml")

	cmd.AddCommand(newAnalyzeCmd(&configPath))
	cmd.AddCommand(newOrderCmd(&configPath))
	cmd.AddCommand(newTypesCmd(&configPath))
	return cmd
}

// setup loads config, configures logging with a per-run id, and loads
// the catalog and resolver shared by every subcommand.
func setup(ctx context.Context, configPath string, globs []string) (*config.Config, *catalog.Catalog, analyze.Resolver, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})).With("run_id", uuid.NewString())
	slog.SetDefault(logger)

	if len(globs) == 0 {
		globs = cfg.Schema
	}
	cat, err := catalog.LoadGlobs(ctx, globs, cfg.DefaultSchema)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	logger.Debug("catalog loaded", "objects", cat.Len())

	resolver := analyze.Resolver(meta.NewCatalogResolver(cat))
	cleanup := func() {}
	if cfg.DatabaseURL != "" {
		pg, closeConn, err := meta.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, nil, err
		}
		resolver = meta.Chain{meta.NewCatalogResolver(cat), pg}
		cleanup = func() {
			if err := closeConn(context.Background()); err != nil {
				logger.Warn("close connection", "error", err)
			}
		}
	}
	return cfg, cat, resolver, cleanup, nil
}
