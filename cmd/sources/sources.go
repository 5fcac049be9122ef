// Package sources provides the sources command implementation.
package sources

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sgryjp/cldb/cmd/common"
	"github.com/sgryjp/cldb/internal/sources"
)

// NewSourcesCommand creates a new sources command.
func NewSourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Inspect the product index pages",
		Long:  `Show the source catalog or the product pages it currently enumerates.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("catalog", "", "source catalog YAML (default is the built-in catalog)")

	cmd.AddCommand(
		NewCatalogCommand(),
		NewListCommand(),
	)

	return cmd
}

// loadDeps binds the shared flags and loads dependencies and the catalog.
func loadDeps(cmd *cobra.Command) (common.CommandDeps, *sources.Catalog, error) {
	if err := common.BindFlags(cmd, map[string]string{"catalog": "sources.catalog_path"}); err != nil {
		return common.CommandDeps{}, nil, err
	}

	deps, err := common.NewCommandDeps(common.Verbosity(cmd))
	if err != nil {
		return common.CommandDeps{}, nil, fmt.Errorf("failed to get dependencies: %w", err)
	}

	catalog, err := sources.LoadCatalog(deps.Config.Sources.CatalogPath)
	if err != nil {
		return common.CommandDeps{}, nil, fmt.Errorf("failed to load sources: %w", err)
	}

	return deps, catalog, nil
}
