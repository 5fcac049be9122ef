package worker

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sgryjp/cldb/internal/assembler"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/progress"
)

// Task outcomes reported to the Observer.
const (
	OutcomeRecord  = "record"
	OutcomeSkip    = "skip"
	OutcomeFailure = "failure"
)

// PageFetcher downloads a page body.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Assembler builds a record from the rows of a spec table.
type Assembler interface {
	Assemble(task equipment.FetchTask, rows []assembler.Row) (assembler.Result, error)
}

// Reconciler carries identity and keywords over from the prior snapshot.
type Reconciler interface {
	Reconcile(rec equipment.Record) (equipment.Record, bool)
}

// Observer is notified of every finished task.
type Observer interface {
	ObserveTask(category equipment.Category, outcome string, reusedID bool)
}

// RunResult is the collected output of a run, in task order.
type RunResult struct {
	Records  []equipment.Record
	Failures []*TaskError
	Skipped  int
	Reused   int
}

// Stats are counters of the tasks processed so far.
type Stats struct {
	Records  int64
	Skipped  int64
	Failures int64
}

// Pool processes fetch tasks concurrently.
type Pool struct {
	cfg        Config
	fetcher    PageFetcher
	assembler  Assembler
	reconciler Reconciler
	log        logger.Logger
	observer   Observer
	reporter   progress.Reporter

	records  atomic.Int64
	skipped  atomic.Int64
	failures atomic.Int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithObserver reports task outcomes to o.
func WithObserver(o Observer) Option {
	return func(p *Pool) {
		p.observer = o
	}
}

// WithReporter shows progress on r.
func WithReporter(r progress.Reporter) Option {
	return func(p *Pool) {
		if r != nil {
			p.reporter = r
		}
	}
}

// NewPool creates a new worker pool.
func NewPool(
	cfg Config,
	fetcher PageFetcher,
	asm Assembler,
	reconciler Reconciler,
	log logger.Logger,
	opts ...Option,
) (*Pool, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if asm == nil {
		return nil, ErrAssemblerRequired
	}
	if reconciler == nil {
		return nil, ErrReconcilerRequired
	}
	if log == nil {
		log = logger.NewNop()
	}

	p := &Pool{
		cfg:        cfg,
		fetcher:    fetcher,
		assembler:  asm,
		reconciler: reconciler,
		log:        log,
		reporter:   progress.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Stats returns the counters of the tasks processed so far.
func (p *Pool) Stats() Stats {
	return Stats{
		Records:  p.records.Load(),
		Skipped:  p.skipped.Load(),
		Failures: p.failures.Load(),
	}
}

// slot holds the outcome of the task at the same index.
type slot struct {
	done   bool
	record *equipment.Record
	reused bool
	err    *TaskError
}

// Run processes tasks and returns the records in task order. Unless
// KeepGoing is set, the first failure cancels the remaining tasks and is
// returned as a *TaskError.
func (p *Pool) Run(ctx context.Context, tasks []equipment.FetchTask) (*RunResult, error) {
	workers := p.cfg.workersFor(len(tasks))
	start := time.Now()

	p.log.Info("Starting run",
		logger.Int("tasks", len(tasks)),
		logger.Int("workers", workers),
		logger.Bool("keep_going", p.cfg.KeepGoing),
	)

	p.reporter.Begin(len(tasks))

	slots := make([]slot, len(tasks))
	var err error
	if workers == 1 {
		err = p.runSequential(ctx, tasks, slots)
	} else {
		err = p.runParallel(ctx, tasks, slots, workers)
	}
	if err == nil {
		err = ctx.Err()
	}

	p.reporter.Finish(err)

	if err != nil {
		p.log.Error("Run aborted", logger.Error(err), logger.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	result := collect(slots)
	p.log.Info("Run finished",
		logger.Int("records", len(result.Records)),
		logger.Int("skipped", result.Skipped),
		logger.Int("failures", len(result.Failures)),
		logger.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (p *Pool) runSequential(ctx context.Context, tasks []equipment.FetchTask, slots []slot) error {
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.reporter.Working(task.Name)
		slots[i] = p.process(ctx, task)
		p.reporter.Completed(task.Name)
		if slots[i].err != nil && !p.cfg.KeepGoing {
			return slots[i].err
		}
	}
	return nil
}

func (p *Pool) runParallel(ctx context.Context, tasks []equipment.FetchTask, slots []slot, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			slots[i] = p.process(gctx, task)
			p.reporter.Completed(task.Name)
			if slots[i].err != nil && !p.cfg.KeepGoing {
				return slots[i].err
			}
			return nil
		})
	}

	return g.Wait()
}

// process runs one task through fetch, parse, assemble and reconcile.
func (p *Pool) process(ctx context.Context, task equipment.FetchTask) slot {
	log := p.log.With(logger.String("name", task.Name), logger.String("url", task.URL))

	rec, reused, err := p.extract(ctx, task, log)
	switch {
	case err != nil:
		p.failures.Add(1)
		p.observe(task.Category, OutcomeFailure, false)
		log.Warn("Task failed", logger.Error(err))
		return slot{done: true, err: &TaskError{Task: task, Err: err}}
	case rec == nil:
		p.skipped.Add(1)
		p.observe(task.Category, OutcomeSkip, false)
		return slot{done: true}
	default:
		p.records.Add(1)
		p.observe(task.Category, OutcomeRecord, reused)
		return slot{done: true, record: rec, reused: reused}
	}
}

func (p *Pool) extract(
	ctx context.Context,
	task equipment.FetchTask,
	log logger.Logger,
) (*equipment.Record, bool, error) {
	body, err := p.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		return nil, false, err
	}

	rows, err := assembler.ParseSpecTable(body, task.TableSelector)
	if err != nil {
		return nil, false, err
	}

	res, err := p.assembler.Assemble(task, rows)
	if err != nil {
		return nil, false, err
	}
	if res.Outcome == assembler.OutcomeSkip {
		log.Debug("Skipping page", logger.String("reason", res.Reason))
		return nil, false, nil
	}

	rec, reused := p.reconciler.Reconcile(res.Record)
	log.Debug("Assembled record", logger.String("id", rec.ID), logger.Bool("reused_id", reused))
	return &rec, reused, nil
}

func (p *Pool) observe(category equipment.Category, outcome string, reused bool) {
	if p.observer != nil {
		p.observer.ObserveTask(category, outcome, reused)
	}
}

func collect(slots []slot) *RunResult {
	result := &RunResult{}
	for _, s := range slots {
		switch {
		case !s.done:
		case s.err != nil:
			result.Failures = append(result.Failures, s.err)
		case s.record == nil:
			result.Skipped++
		default:
			result.Records = append(result.Records, *s.record)
			if s.reused {
				result.Reused++
			}
		}
	}
	return result
}
