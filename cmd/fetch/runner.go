package fetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sgryjp/cldb/internal/assembler"
	"github.com/sgryjp/cldb/internal/config"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/grammar"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/metrics"
	"github.com/sgryjp/cldb/internal/progress"
	"github.com/sgryjp/cldb/internal/reconcile"
	"github.com/sgryjp/cldb/internal/snapshot"
	"github.com/sgryjp/cldb/internal/sources"
	"github.com/sgryjp/cldb/internal/worker"
)

// PageFetcher downloads index and spec pages.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Summary counts the models seen by one run.
type Summary struct {
	// Registered is the number of models in the prior snapshot.
	Registered int
	// Enumerated is the number of product pages found on the index pages.
	Enumerated int
	// Known is the number of records that kept a prior identifier.
	Known int
	// New is the number of records with a fresh identifier.
	New int
	// Skipped is the number of pages that did not yield a record.
	Skipped int
	// Failed is the number of failed pages; only non-zero with keep_going.
	Failed int
}

// Runner executes one fetch run.
type Runner struct {
	cfg      *config.Config
	log      logger.Logger
	fetcher  PageFetcher
	catalog  *sources.Catalog
	grammars *grammar.Table
	metrics  *metrics.Metrics
	stdout   io.Writer
	reporter progress.Reporter
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdout replaces the stream the snapshot is written to when no output
// path is given.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithReporter shows task progress on rep.
func WithReporter(rep progress.Reporter) Option {
	return func(r *Runner) {
		r.reporter = rep
	}
}

// WithGrammars replaces the built-in grammar table.
func WithGrammars(t *grammar.Table) Option {
	return func(r *Runner) {
		r.grammars = t
	}
}

// NewRunner creates a Runner.
func NewRunner(
	cfg *config.Config,
	log logger.Logger,
	fetcher PageFetcher,
	catalog *sources.Catalog,
	m *metrics.Metrics,
	opts ...Option,
) *Runner {
	r := &Runner{
		cfg:      cfg,
		log:      log,
		fetcher:  fetcher,
		catalog:  catalog,
		grammars: grammar.Default(),
		metrics:  m,
		stdout:   os.Stdout,
		reporter: progress.Nop{},
	}
	if r.metrics == nil {
		r.metrics = metrics.New()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run fetches every product of category and writes the reconciled snapshot
// to output, or to stdout when output is empty. Nothing is written when the
// run fails.
func (r *Runner) Run(ctx context.Context, category equipment.Category, output string) (summary *Summary, err error) {
	start := time.Now()
	log := r.log.With(logger.String("category", string(category)))

	defer func() {
		r.metrics.ObserveRun(category, r.cfg.Worker.Workers(), time.Since(start), err)
		if path := r.cfg.Metrics.Textfile; path != "" {
			if writeErr := r.metrics.WriteTextfile(path); writeErr != nil {
				log.Warn("Failed to write metrics", logger.String("path", path), logger.Error(writeErr))
			}
		}
	}()

	schema, err := equipment.SchemaFor(category)
	if err != nil {
		return nil, err
	}
	if err = r.checkGrammars(category); err != nil {
		return nil, err
	}

	priorPath := r.cfg.Datasets.PathFor(category)
	prior, err := snapshot.LoadPrior(priorPath)
	if err != nil {
		return nil, fmt.Errorf("prior dataset: %w", err)
	}
	summary = &Summary{Registered: prior.Len()}
	log.Info("Number of already registered models",
		logger.Int("count", summary.Registered),
		logger.String("path", priorPath),
	)

	enumerator := sources.NewEnumerator(r.fetcher, r.catalog, log)
	tasks, err := sources.Collect(enumerator.Tasks(ctx, category))
	if err != nil {
		return nil, fmt.Errorf("enumerate products: %w", err)
	}
	summary.Enumerated = len(tasks)
	log.Info("Total number of equipment to fetch", logger.Int("count", summary.Enumerated))

	pool, err := worker.NewPool(
		r.cfg.Worker,
		r.fetcher,
		assembler.New(r.grammars),
		reconcile.New(prior),
		log,
		worker.WithObserver(r.metrics),
		worker.WithReporter(r.reporter),
	)
	if err != nil {
		return nil, err
	}

	result, err := pool.Run(ctx, tasks)
	if err != nil {
		return nil, err
	}

	summary.Known = result.Reused
	summary.New = len(result.Records) - result.Reused
	summary.Skipped = result.Skipped
	summary.Failed = len(result.Failures)
	for _, f := range result.Failures {
		log.Warn("Product left out", logger.String("name", f.Task.Name), logger.Error(f.Err))
	}
	log.Info("Number of known models", logger.Int("count", summary.Known))
	log.Info("Number of new models", logger.Int("count", summary.New))

	snapshot.Sort(result.Records, schema)
	if err = r.write(output, snapshot.Encode(result.Records, schema)); err != nil {
		return nil, err
	}

	return summary, nil
}

// checkGrammars fails early when a catalog source has no grammar.
func (r *Runner) checkGrammars(category equipment.Category) error {
	for _, src := range r.catalog.ByCategory(category) {
		if _, err := r.grammars.Lookup(src.Vendor, category); err != nil {
			return fmt.Errorf("source %q: %w", src.ID, err)
		}
	}
	return nil
}

func (r *Runner) write(output string, t snapshot.Table) error {
	if output == "" {
		if err := snapshot.Write(r.stdout, t); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		return nil
	}
	if err := snapshot.WriteFile(output, t); err != nil {
		return fmt.Errorf("write snapshot %s: %w", output, err)
	}
	r.log.Info("Snapshot written", logger.String("path", output), logger.Int("rows", len(t)-1))
	return nil
}
