package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/app"
	"github.com/kailas-cloud/semsearch/internal/version"
)

func newServeCmd(g *globals) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g.logger.Info("Starting semsearch API server",
				zap.String("version", version.Version),
				zap.String("commit", version.Commit),
				zap.String("env", g.env),
				zap.Int("http_port", g.cfg.HTTP.Port),
				zap.String("store_driver", g.cfg.Store.Driver),
				zap.String("cache_driver", g.cfg.Cache.Driver),
			)

			a, err := app.New(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()

			if migrate {
				if err := a.Migrate(ctx); err != nil {
					return err
				}
			}
			return a.Serve(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create the schema before serving")
	return cmd
}

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the document store schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx, g.cfg, g.logger)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Migrate(ctx)
		},
	}
}
