package worker_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgryjp/cldb/internal/assembler"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/reconcile"
	"github.com/sgryjp/cldb/internal/worker"
)

const specPage = `<html><body><table><tr><th>焦点距離</th><td>50mm</td></tr></table></body></html>`

var errNotFound = errors.New("404 Not Found")

// fakeFetcher serves specPage for every URL except those listed in failing.
// A URL-dependent delay shuffles completion order between workers.
type fakeFetcher struct {
	failing map[string]bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.failing[url] {
		return nil, errNotFound
	}
	delay := time.Duration(len(url)%3) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return []byte(specPage), nil
}

// fakeAssembler skips tasks whose name starts with "skip" and records the rest.
type fakeAssembler struct{}

func (fakeAssembler) Assemble(task equipment.FetchTask, rows []assembler.Row) (assembler.Result, error) {
	if len(rows) != 1 {
		return assembler.Result{}, fmt.Errorf("unexpected rows %v", rows)
	}
	if strings.HasPrefix(task.Name, "skip") {
		return assembler.Result{Outcome: assembler.OutcomeSkip, Reason: assembler.ReasonIncomplete}, nil
	}
	rec := equipment.NewRecord(task.Category, "new-"+task.Name, task.Name, task.Brand)
	return assembler.Result{Outcome: assembler.OutcomeRecord, Record: rec}, nil
}

type mapPrior map[string]reconcile.Entry

func (m mapPrior) Lookup(name string) (reconcile.Entry, bool) {
	e, ok := m[name]
	return e, ok
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes map[string]int
	reused   int
}

func (o *countingObserver) ObserveTask(_ equipment.Category, outcome string, reused bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = map[string]int{}
	}
	o.outcomes[outcome]++
	if reused {
		o.reused++
	}
}

type recordingReporter struct {
	mu        sync.Mutex
	total     int
	working   []string
	completed int
	err       error
	finished  bool
}

func (r *recordingReporter) Begin(total int) { r.total = total }

func (r *recordingReporter) Working(item string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.working = append(r.working, item)
}

func (r *recordingReporter) Completed(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recordingReporter) Finish(err error) {
	r.err = err
	r.finished = true
}

func makeTasks(names ...string) []equipment.FetchTask {
	tasks := make([]equipment.FetchTask, len(names))
	for i, name := range names {
		tasks[i] = equipment.FetchTask{
			Name:          name,
			URL:           "https://example.com/" + name + "/spec.html",
			Category:      equipment.CategoryLens,
			Vendor:        "nikon",
			Brand:         "Nikon",
			TableSelector: "table",
		}
	}
	return tasks
}

func newPool(t *testing.T, cfg worker.Config, f worker.PageFetcher, opts ...worker.Option) *worker.Pool {
	t.Helper()

	prior := mapPrior{
		equipment.FoldName("AF-S 50mm"): {ID: "abc-001", Keywords: equipment.Keywords{"legacy"}},
	}
	p, err := worker.NewPool(cfg, f, fakeAssembler{}, reconcile.New(prior), logger.NewNop(), opts...)
	require.NoError(t, err)
	return p
}

func names(records []equipment.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func TestNewPool_Validation(t *testing.T) {
	t.Parallel()

	rec := reconcile.New(nil)

	_, err := worker.NewPool(worker.Config{}, nil, fakeAssembler{}, rec, nil)
	require.ErrorIs(t, err, worker.ErrFetcherRequired)

	_, err = worker.NewPool(worker.Config{}, &fakeFetcher{}, nil, rec, nil)
	require.ErrorIs(t, err, worker.ErrAssemblerRequired)

	_, err = worker.NewPool(worker.Config{}, &fakeFetcher{}, fakeAssembler{}, nil, nil)
	require.ErrorIs(t, err, worker.ErrReconcilerRequired)

	_, err = worker.NewPool(worker.Config{Count: 100}, &fakeFetcher{}, fakeAssembler{}, rec, nil)
	require.NoError(t, err)
}

func TestConfig_Workers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, worker.Config{Count: 3}.Workers())
	assert.Positive(t, worker.Config{Count: 0}.Workers())
	assert.Positive(t, worker.Config{Count: -2}.Workers())
}

func TestRun_PreservesTaskOrder(t *testing.T) {
	t.Parallel()

	tasks := makeTasks("a", "bb", "skip-c", "ddd", "AF-S 50mm", "e", "ffff", "g")

	for _, count := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("workers=%d", count), func(t *testing.T) {
			t.Parallel()

			obs := &countingObserver{}
			p := newPool(t, worker.Config{Count: count}, &fakeFetcher{}, worker.WithObserver(obs))

			result, err := p.Run(context.Background(), tasks)
			require.NoError(t, err)

			assert.Equal(t, []string{"a", "bb", "ddd", "AF-S 50mm", "e", "ffff", "g"}, names(result.Records))
			assert.Equal(t, 1, result.Skipped)
			assert.Equal(t, 1, result.Reused)
			assert.Empty(t, result.Failures)

			assert.Equal(t, 7, obs.outcomes[worker.OutcomeRecord])
			assert.Equal(t, 1, obs.outcomes[worker.OutcomeSkip])
			assert.Equal(t, 1, obs.reused)
			assert.Equal(t, worker.Stats{Records: 7, Skipped: 1}, p.Stats())
		})
	}
}

func TestRun_ReconcilesRecords(t *testing.T) {
	t.Parallel()

	p := newPool(t, worker.Config{Count: 2}, &fakeFetcher{})

	result, err := p.Run(context.Background(), makeTasks("AF-S 50mm", "Z 24mm"))
	require.NoError(t, err)
	require.Len(t, result.Records, 2)

	assert.Equal(t, "abc-001", result.Records[0].ID)
	assert.True(t, result.Records[0].Keywords.Contains("legacy"))
	assert.Equal(t, "new-Z 24mm", result.Records[1].ID)
}

func TestRun_SequentialMatchesParallel(t *testing.T) {
	t.Parallel()

	tasks := makeTasks("one", "two", "skip-three", "four", "five", "six")

	seq, err := newPool(t, worker.Config{Count: 1}, &fakeFetcher{}).Run(context.Background(), tasks)
	require.NoError(t, err)
	par, err := newPool(t, worker.Config{Count: 4}, &fakeFetcher{}).Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, seq, par)
}

func TestRun_FailFast(t *testing.T) {
	t.Parallel()

	tasks := makeTasks("a", "broken", "c", "d")
	fetcher := &fakeFetcher{failing: map[string]bool{tasks[1].URL: true}}

	for _, count := range []int{1, 3} {
		t.Run(fmt.Sprintf("workers=%d", count), func(t *testing.T) {
			t.Parallel()

			reporter := &recordingReporter{}
			p := newPool(t, worker.Config{Count: count}, fetcher, worker.WithReporter(reporter))

			result, err := p.Run(context.Background(), tasks)
			require.Error(t, err)
			assert.Nil(t, result)

			var taskErr *worker.TaskError
			require.ErrorAs(t, err, &taskErr)
			assert.Equal(t, "broken", taskErr.Task.Name)
			require.ErrorIs(t, err, errNotFound)

			assert.True(t, reporter.finished)
			assert.ErrorIs(t, reporter.err, errNotFound)
		})
	}
}

func TestRun_KeepGoingCollectsFailures(t *testing.T) {
	t.Parallel()

	tasks := makeTasks("a", "broken", "c", "gone")
	fetcher := &fakeFetcher{failing: map[string]bool{tasks[1].URL: true, tasks[3].URL: true}}

	p := newPool(t, worker.Config{Count: 2, KeepGoing: true}, fetcher)

	result, err := p.Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, names(result.Records))
	require.Len(t, result.Failures, 2)
	assert.Equal(t, "broken", result.Failures[0].Task.Name)
	assert.Equal(t, "gone", result.Failures[1].Task.Name)
	assert.ErrorIs(t, result.Failures[0], errNotFound)
}

func TestRun_SequentialReportsWorkingItem(t *testing.T) {
	t.Parallel()

	reporter := &recordingReporter{}
	p := newPool(t, worker.Config{Count: 1}, &fakeFetcher{}, worker.WithReporter(reporter))

	_, err := p.Run(context.Background(), makeTasks("x", "y"))
	require.NoError(t, err)

	assert.Equal(t, 2, reporter.total)
	assert.Equal(t, []string{"x", "y"}, reporter.working)
	assert.Equal(t, 2, reporter.completed)
	assert.NoError(t, reporter.err)
}

func TestRun_MalformedPageFails(t *testing.T) {
	t.Parallel()

	p := newPool(t, worker.Config{Count: 1}, &fakeFetcher{})
	tasks := makeTasks("a")
	tasks[0].TableSelector = "table.missing"

	_, err := p.Run(context.Background(), tasks)
	require.ErrorIs(t, err, assembler.ErrMalformedTable)
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPool(t, worker.Config{Count: 2, KeepGoing: true}, &fakeFetcher{})
	_, err := p.Run(ctx, makeTasks("a", "b", "c"))
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_MoreWorkersThanTasks(t *testing.T) {
	t.Parallel()

	result, err := newPool(t, worker.Config{Count: 500}, &fakeFetcher{}).Run(context.Background(), makeTasks("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(result.Records))
}

func TestRun_NoTasks(t *testing.T) {
	t.Parallel()

	result, err := newPool(t, worker.Config{Count: 4}, &fakeFetcher{}).Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, result.Records)
}
