package sources

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/fetcher"
	"github.com/sgryjp/cldb/internal/logger"
	internalsources "github.com/sgryjp/cldb/internal/sources"
)

// TableRenderer handles the display of source data in a table format
type TableRenderer struct {
	out io.Writer
}

// NewTableRenderer creates a new TableRenderer instance
func NewTableRenderer(out io.Writer) *TableRenderer {
	return &TableRenderer{out: out}
}

func (r *TableRenderer) newWriter() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleLight)
	return t
}

// RenderCatalog formats the catalog sources of the given categories.
func (r *TableRenderer) RenderCatalog(catalog *internalsources.Catalog, categories []equipment.Category) {
	t := r.newWriter()
	t.AppendHeader(table.Row{"ID", "Category", "Vendor", "Brand", "Index URL"})

	for _, category := range categories {
		for _, src := range catalog.ByCategory(category) {
			t.AppendRow(table.Row{src.ID, src.Category, src.Vendor, src.Brand, src.IndexURL})
		}
	}

	t.Render()
}

// RenderTasks formats enumerated product pages.
func (r *TableRenderer) RenderTasks(tasks []equipment.FetchTask) {
	t := r.newWriter()
	t.AppendHeader(table.Row{"#", "Source", "Name", "URL"})

	for i, task := range tasks {
		t.AppendRow(table.Row{i + 1, task.Source, task.Name, task.URL})
	}

	t.AppendFooter(table.Row{"", "", "Total", len(tasks)})
	t.Render()
}

// Lister handles listing product pages
type Lister struct {
	enumerator *internalsources.Enumerator
	logger     logger.Logger
	renderer   *TableRenderer
}

// NewLister creates a new Lister instance
func NewLister(enumerator *internalsources.Enumerator, log logger.Logger, renderer *TableRenderer) *Lister {
	return &Lister{
		enumerator: enumerator,
		logger:     log,
		renderer:   renderer,
	}
}

// Start enumerates the product pages of category without fetching them.
func (l *Lister) Start(ctx context.Context, category equipment.Category) error {
	l.logger.Info("Listing product pages", logger.String("category", string(category)))

	tasks, err := internalsources.Collect(l.enumerator.Tasks(ctx, category))
	if err != nil {
		return fmt.Errorf("failed to enumerate products: %w", err)
	}

	if len(tasks) == 0 {
		l.logger.Warn("No products found", logger.String("category", string(category)))
	}

	l.renderer.RenderTasks(tasks)
	return nil
}

// NewListCommand creates a new list command
func NewListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list TARGET",
		Short: "List the product pages of a category",
		Long: `Fetch the index pages of every source of TARGET ('camera' or 'lens') and
list the product pages that fetch would process.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := equipment.ParseCategory(args[0])
			if err != nil {
				return err
			}

			deps, catalog, err := loadDeps(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Logger.Sync() }()

			f := fetcher.New(deps.Config.Fetcher, deps.Logger)
			enumerator := internalsources.NewEnumerator(f, catalog, deps.Logger)
			lister := NewLister(enumerator, deps.Logger, NewTableRenderer(cmd.OutOrStdout()))

			return lister.Start(cmd.Context(), category)
		},
	}
}

// NewCatalogCommand creates a new catalog command
func NewCatalogCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog [TARGET]",
		Short: "Show the source catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			categories := equipment.Categories()
			if len(args) == 1 {
				category, err := equipment.ParseCategory(args[0])
				if err != nil {
					return err
				}
				categories = []equipment.Category{category}
			}

			_, catalog, err := loadDeps(cmd)
			if err != nil {
				return err
			}

			NewTableRenderer(cmd.OutOrStdout()).RenderCatalog(catalog, categories)
			return nil
		},
	}
}
