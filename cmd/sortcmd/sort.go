// Package sortcmd implements the sort command.
package sortcmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sgryjp/cldb/cmd/common"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/snapshot"
)

// sortedSuffix is inserted before the extension when not overwriting.
const sortedSuffix = ".sorted"

// Command creates the sort command.
func Command() *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "sort",
		Short: "Sort the camera and lens datasets",
		Long: `Re-sort the camera and lens datasets with the same keys fetch uses.

Without --overwrite the result goes next to each dataset, e.g. cameras.sorted.csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.BindFlags(cmd, map[string]string{
				"lenses-csv":  "datasets.lenses",
				"cameras-csv": "datasets.cameras",
			}); err != nil {
				return err
			}

			deps, err := common.NewCommandDeps(common.Verbosity(cmd))
			if err != nil {
				return fmt.Errorf("failed to get dependencies: %w", err)
			}
			defer func() { _ = deps.Logger.Sync() }()

			for _, category := range []equipment.Category{equipment.CategoryCamera, equipment.CategoryLens} {
				src := deps.Config.Datasets.PathFor(category)
				dst := src
				if !overwrite {
					dst = SortedPath(src)
				}
				if err := SortFile(category, src, dst); err != nil {
					return err
				}
				deps.Logger.Info("Dataset sorted", logger.String("source", src), logger.String("destination", dst))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&overwrite, "overwrite", "o", false, "rewrite the datasets in place")
	cmd.Flags().String("lenses-csv", "lenses.csv", "the lens database file")
	cmd.Flags().String("cameras-csv", "cameras.csv", "the camera database file")

	return cmd
}

// SortFile reads the dataset at src, sorts it and writes it to dst.
func SortFile(category equipment.Category, src, dst string) error {
	schema, err := equipment.SchemaFor(category)
	if err != nil {
		return err
	}

	t, err := snapshot.ReadFile(src)
	if err != nil {
		return err
	}

	records, err := snapshot.Decode(t, schema)
	if err != nil {
		return fmt.Errorf("decode %s: %w", src, err)
	}

	snapshot.Sort(records, schema)

	return snapshot.WriteFile(dst, snapshot.Encode(records, schema, schema.ExtraColumns(t[0])...))
}

// SortedPath returns where a sorted copy of path goes.
func SortedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + sortedSuffix + ext
}
