package fetch_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgryjp/cldb/cmd/fetch"
	"github.com/sgryjp/cldb/internal/config"
	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/fetcher"
	"github.com/sgryjp/cldb/internal/grammar"
	"github.com/sgryjp/cldb/internal/logger"
	"github.com/sgryjp/cldb/internal/metrics"
	"github.com/sgryjp/cldb/internal/snapshot"
	"github.com/sgryjp/cldb/internal/sources"
	"github.com/sgryjp/cldb/internal/worker"
)

const indexPage = `<html><body><ul class="products">
<li><a href="ilce-7m4/"><span class="name">α7 IV</span></a></li>
<li><a href="ilce-6700/?ref=list"><span class="name">α6700</span></a></li>
<li><a href="vg-c5/"><span class="name">Vertical Grip</span></a></li>
</ul></body></html>`

func specPage(rows ...[2]string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="spec">`)
	for _, r := range rows {
		b.WriteString("<tr><th>" + r[0] + "</th><td>" + r[1] + "</td></tr>")
	}
	b.WriteString("</table></body></html>")
	return b.String()
}

func newServer(t *testing.T, overrides map[string]int) *httptest.Server {
	t.Helper()

	pages := map[string]string{
		"/ichigan/": indexPage,
		"/ichigan/ilce-7m4/spec.html": specPage(
			[2]string{"レンズマウント", "ソニーEマウント"},
			[2]string{"撮像素子", "35mmフルサイズ（35.9×23.9mm）Exmor R CMOSセンサー"},
		),
		"/ichigan/ilce-6700/spec.html": specPage(
			[2]string{"レンズマウント", "Eマウント"},
			[2]string{"撮像素子", "APS-Cサイズ（23.3×15.5mm）"},
		),
		"/ichigan/vg-c5/spec.html": specPage(
			[2]string{"質量", "約300g"},
		),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if code, ok := overrides[r.URL.Path]; ok {
			w.WriteHeader(code)
			return
		}
		page, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testCatalog(t *testing.T, srv *httptest.Server) *sources.Catalog {
	t.Helper()

	c := &sources.Catalog{
		Version: 1,
		Sources: []sources.Source{{
			ID:            "sony-test",
			Category:      equipment.CategoryCamera,
			Vendor:        grammar.VendorSony,
			Brand:         "Sony",
			IndexURL:      srv.URL + "/ichigan/",
			ItemSelector:  "ul.products a",
			NameSelector:  ".name",
			SpecSuffix:    "spec.html",
			TableSelector: "table.spec",
		}},
	}
	require.NoError(t, c.Validate())
	return c
}

func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()

	camerasPath := filepath.Join(dir, "cameras.csv")
	prior := "ID,Name,Brand,Mount,Size,Keywords,Comment\n" +
		"cam-001,α7 iv,Sony,Sony E,35mm,legacy,\n"
	require.NoError(t, os.WriteFile(camerasPath, []byte(prior), 0o600))

	return &config.Config{
		Datasets: config.DatasetsConfig{
			Lenses:  filepath.Join(dir, "lenses.csv"),
			Cameras: camerasPath,
		},
		Worker:  worker.Config{Count: 2},
		Metrics: config.MetricsConfig{Textfile: filepath.Join(dir, "cldb.prom")},
	}
}

func newFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		RateLimit:         1000,
		Burst:             10,
		MaxRetries:        2,
		RetryInitialDelay: time.Millisecond,
		RetryMaxDelay:     time.Millisecond,
	}, logger.NewNop())
}

func TestRunner_WritesReconciledSnapshot(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	var stdout bytes.Buffer
	r := fetch.NewRunner(cfg, logger.NewNop(), newFetcher(), testCatalog(t, srv), metrics.New(),
		fetch.WithStdout(&stdout))

	summary, err := r.Run(context.Background(), equipment.CategoryCamera, "")
	require.NoError(t, err)

	assert.Equal(t, fetch.Summary{Registered: 1, Enumerated: 3, Known: 1, New: 1, Skipped: 1}, *summary)

	table, err := snapshot.ReadCSV(&stdout)
	require.NoError(t, err)
	schema, err := equipment.SchemaFor(equipment.CategoryCamera)
	require.NoError(t, err)
	records, err := snapshot.Decode(table, schema)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "α6700", records[0].Name)
	assert.Equal(t, "APS-C", records[0].Text(equipment.AttrSize))
	assert.NotEmpty(t, records[0].ID)
	assert.Equal(t, equipment.Keywords{"mirrorless"}, records[0].Keywords)

	assert.Equal(t, "cam-001", records[1].ID)
	assert.Equal(t, "α7 IV", records[1].Name)
	assert.Equal(t, "Sony E", records[1].Text(equipment.AttrMount))
	assert.Equal(t, "35mm", records[1].Text(equipment.AttrSize))
	assert.Equal(t, equipment.Keywords{"legacy", "mirrorless"}, records[1].Keywords)

	prom, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `cldb_fetch_tasks_total{category="camera",outcome="record"} 2`)
	assert.Contains(t, string(prom), `cldb_fetch_ids_reused_total{category="camera"} 1`)
}

func TestRunner_WritesOutputFile(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	output := filepath.Join(dir, "cameras.new.xlsx")

	r := fetch.NewRunner(cfg, logger.NewNop(), newFetcher(), testCatalog(t, srv), nil)
	_, err := r.Run(context.Background(), equipment.CategoryCamera, output)
	require.NoError(t, err)

	table, err := snapshot.ReadFile(output)
	require.NoError(t, err)
	assert.Len(t, table, 3)
}

func TestRunner_FailureWritesNothing(t *testing.T) {
	t.Parallel()

	srv := newServer(t, map[string]int{"/ichigan/ilce-6700/spec.html": http.StatusInternalServerError})
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	output := filepath.Join(dir, "out.csv")

	r := fetch.NewRunner(cfg, logger.NewNop(), newFetcher(), testCatalog(t, srv), nil)
	_, err := r.Run(context.Background(), equipment.CategoryCamera, output)

	var taskErr *worker.TaskError
	require.ErrorAs(t, err, &taskErr)
	assert.Equal(t, "α6700", taskErr.Task.Name)

	var statusErr *fetcher.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)

	assert.NoFileExists(t, output)

	prom, readErr := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, readErr)
	assert.Contains(t, string(prom), `status="failure"`)
}

func TestRunner_KeepGoing(t *testing.T) {
	t.Parallel()

	srv := newServer(t, map[string]int{"/ichigan/ilce-6700/spec.html": http.StatusNotFound})
	cfg := testConfig(t, t.TempDir())
	cfg.Worker.KeepGoing = true

	var stdout bytes.Buffer
	r := fetch.NewRunner(cfg, logger.NewNop(), newFetcher(), testCatalog(t, srv), nil, fetch.WithStdout(&stdout))

	summary, err := r.Run(context.Background(), equipment.CategoryCamera, "")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Known)
	assert.Contains(t, stdout.String(), "cam-001")
	assert.NotContains(t, stdout.String(), "α6700")
}

func TestRunner_MissingPriorIsFatal(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	cfg := testConfig(t, t.TempDir())
	cfg.Datasets.Cameras = filepath.Join(t.TempDir(), "missing.csv")

	r := fetch.NewRunner(cfg, logger.NewNop(), newFetcher(), testCatalog(t, srv), nil)
	_, err := r.Run(context.Background(), equipment.CategoryCamera, "")
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunner_UnknownVendorIsFatal(t *testing.T) {
	t.Parallel()

	srv := newServer(t, nil)
	catalog := testCatalog(t, srv)
	catalog.Sources[0].Vendor = "canon"

	r := fetch.NewRunner(testConfig(t, t.TempDir()), logger.NewNop(), newFetcher(), catalog, nil)
	_, err := r.Run(context.Background(), equipment.CategoryCamera, "")
	require.ErrorIs(t, err, grammar.ErrNoGrammar)
	assert.Contains(t, err.Error(), "sony-test")
}
