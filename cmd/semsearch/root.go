package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/semsearch/internal/config"
	logpkg "github.com/kailas-cloud/semsearch/internal/logger"
	"github.com/kailas-cloud/semsearch/internal/version"
)

// globals are resolved once in PersistentPreRunE and shared by subcommands.
type globals struct {
	cfgFile string
	env     string
	cfg     config.Config
	logger  *zap.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "semsearch",
		Short: "Semantic document store with embedding-based retrieval",
		Long: `semsearch stores short text documents with their embeddings and answers
natural-language queries with the most similar documents.

Example usage:
  semsearch serve                         # Run the HTTP API
  semsearch migrate                       # Create the document schema
  semsearch ingest 'notes/**/*.md'        # Bulk insert files`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if g.logger != nil {
				_ = g.logger.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default is config/<ENV>.yaml)")

	root.AddCommand(newServeCmd(g), newMigrateCmd(g), newIngestCmd(g))
	return root
}

func (g *globals) load() error {
	g.env = config.GetEnv()

	var err error
	if g.cfgFile != "" {
		g.cfg, err = config.LoadFile(g.cfgFile)
	} else {
		g.cfg, err = config.Load(g.env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	g.logger, err = logpkg.NewLogger(g.env, logpkg.Options{
		Level:  g.cfg.Logging.Level,
		Format: g.cfg.Logging.Format,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	return nil
}
