package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"gitlab.com/pietroski-software-company/golang/devex/slogx"
	"gitlab.com/pietroski-software-company/golang/devex/tracer"

	fulltextconfig "gitlab.com/pietroski-software-company/lightning-fulltext/internal/config/fulltext"
)

var (
	cfg    *fulltextconfig.Config
	logger slogx.SLogger
)

var rootCmd = &cobra.Command{
	Use:   "fulltextd",
	Short: "Fulltext indexes over a graph store",
	Long: `fulltextd keeps fulltext indexes over the nodes and relationships of a
graph store up to date and serves queries against them.

Configuration comes from the environment:
  FULLTEXT_STORE_PATH   graph store directory
  FULLTEXT_INDEX_PATH   base directory of the indexes
  FULLTEXT_INDEXES      name:kind:prop1,prop2 entries separated by ';'`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		ctx, err := tracer.New().Trace(cmd.Context())
		if err != nil {
			return err
		}
		cmd.SetContext(ctx)

		logger = slogx.New()
		cfg, err = fulltextconfig.Load()
		if err != nil {
			logger.Error(ctx, "failed to load fulltext configs", "error", err)

			return err
		}

		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
