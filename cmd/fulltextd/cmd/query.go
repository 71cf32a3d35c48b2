package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	fulltextindex "gitlab.com/pietroski-software-company/lightning-fulltext/internal/adaptors/fulltext/index"
	fulltextmodels "gitlab.com/pietroski-software-company/lightning-fulltext/internal/models/fulltext"
)

var (
	queryIndex string
	queryKind  string
	queryFuzzy bool
	queryLimit int
)

var queryCmd = &cobra.Command{
	Use:   "query <term>...",
	Short: "Query one index",
	Long: `Opens the graph store and the configured indexes, waits for any pending
population and prints the ids matching the given terms, best first.

The store must not be held open by a running server.

Examples:
  fulltextd query --index people hello
  fulltextd query --index follows --kind relationships --fuzzy sinse`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, err := fulltextmodels.ParseEntityKind(queryKind)
		if err != nil {
			return err
		}

		e, err := openEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer e.close(ctx)

		if err = e.provider.Init(ctx); err != nil {
			return err
		}
		if err = e.provider.AwaitPopulation(ctx); err != nil {
			return err
		}

		reader, err := e.provider.Reader(queryIndex, kind)
		if err != nil {
			return err
		}
		defer func() {
			if err := reader.Close(); err != nil {
				logger.Error(ctx, "failed to close index reader", "index", queryIndex, "error", err)
			}
		}()

		var results *fulltextindex.Results
		if queryFuzzy {
			results, err = reader.FuzzyQuery(ctx, args...)
		} else {
			results, err = reader.Query(ctx, args...)
		}
		if err != nil {
			return err
		}

		var found int
		for (queryLimit <= 0 || found < queryLimit) && results.Next() {
			hit := results.Hit()
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.4f\n", hit.EntityID, hit.Score)
			found++
		}
		if err = results.Err(); err != nil {
			return err
		}

		if found == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No results found")
		}

		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&queryIndex, "index", "i", "", "index name")
	queryCmd.Flags().StringVarP(&queryKind, "kind", "k", "nodes", "entity kind, nodes or relationships")
	queryCmd.Flags().BoolVarP(&queryFuzzy, "fuzzy", "f", false, "match terms within the configured edit distance")
	queryCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "maximum number of hits, 0 for all")
	_ = queryCmd.MarkFlagRequired("index")

	rootCmd.AddCommand(queryCmd)
}
