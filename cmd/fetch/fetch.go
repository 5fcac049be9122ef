// Package fetch implements the fetch command.
package fetch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgryjp/cldb/cmd/common"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/fetcher"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/metrics"
	"github.com/sgryjp/cldb/internal/progress"
	"github.com/sgryjp/cldb/internal/sources"
)

// flagKeys maps fetch flags to config keys.
var flagKeys = map[string]string{
	"lenses-csv":   "datasets.lenses",
	"cameras-csv":  "datasets.cameras",
	"num-workers":  "worker.count",
	"keep-going":   "worker.keep_going",
	"metrics-file": "metrics.textfile",
	"catalog":      "sources.catalog_path",
}

// Command creates the fetch command.
func Command() *cobra.Command {
	var (
		output     string
		noProgress bool
	)

	cmd := &cobra.Command{
		Use:   "fetch TARGET",
		Short: "Fetch the newest equipment data from the Web",
		Long: `Fetch the newest equipment data from the manufacturers' sites.

TARGET must be either 'camera' or 'lens'. Identifiers and keywords of models
already present in the prior dataset (--lenses-csv or --cameras-csv) are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := equipment.ParseCategory(args[0])
			if err != nil {
				return err
			}

			if bindErr := common.BindFlags(cmd, flagKeys); bindErr != nil {
				return bindErr
			}

			deps, err := common.NewCommandDeps(common.Verbosity(cmd))
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}
			defer func() { _ = deps.Logger.Sync() }()

			catalog, err := sources.LoadCatalog(deps.Config.Sources.CatalogPath)
			if err != nil {
				return err
			}

			m := metrics.New()
			f := fetcher.New(deps.Config.Fetcher, deps.Logger, fetcher.WithObserver(m))

			var reporter progress.Reporter = progress.Nop{}
			if !noProgress {
				reporter = progress.NewBar(cmd.ErrOrStderr(), fmt.Sprintf("Fetching %s specs", category))
			}

			runner := NewRunner(deps.Config, deps.Logger, f, catalog, m,
				WithStdout(cmd.OutOrStdout()),
				WithReporter(reporter),
			)

			summary, err := runner.Run(cmd.Context(), category, output)
			if err != nil {
				return err
			}
			if summary.Failed > 0 {
				deps.Logger.Warn("Some products were left out", logger.Int("failed", summary.Failed))
			}
			return nil
		},
	}

	cmd.Flags().String("lenses-csv", "lenses.csv", "the lens database file (source of already known equipment IDs)")
	cmd.Flags().String("cameras-csv", "cameras.csv", "the camera database file (source of already known equipment IDs)")
	cmd.Flags().IntP("num-workers", "j", 0, "number of concurrent workers; 0 uses one per CPU core")
	cmd.Flags().Bool("keep-going", false, "leave out failed products instead of aborting")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics of the run to this file")
	cmd.Flags().String("catalog", "", "source catalog YAML (default is the built-in catalog)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "the file to store scraped spec data (default is stdout)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not show the progress bar")

	return cmd
}
