// Package sources enumerates the product pages listed on vendor index pages.
package sources

import (
	"bytes"
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/logger"
)

// PageFetcher retrieves raw page content.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Enumerator turns catalog sources into fetch tasks.
type Enumerator struct {
	fetcher PageFetcher
	catalog *Catalog
	log     logger.Logger
}

// NewEnumerator creates an Enumerator.
func NewEnumerator(fetcher PageFetcher, catalog *Catalog, log logger.Logger) *Enumerator {
	return &Enumerator{fetcher: fetcher, catalog: catalog, log: log}
}

// Tasks chains the tasks of every source of category in catalog order.
// A spec page listed more than once is yielded only the first time.
func (e *Enumerator) Tasks(ctx context.Context, category equipment.Category) iter.Seq2[equipment.FetchTask, error] {
	return func(yield func(equipment.FetchTask, error) bool) {
		seen := make(map[string]bool)
		for _, src := range e.catalog.ByCategory(category) {
			for task, err := range e.Enumerate(ctx, src) {
				if err != nil {
					yield(equipment.FetchTask{}, err)
					return
				}
				if seen[task.URL] {
					e.log.Debug("Skipping duplicate product entry",
						logger.String("source", src.ID),
						logger.String("name", task.Name),
						logger.String("url", task.URL),
					)
					continue
				}
				seen[task.URL] = true
				if !yield(task, nil) {
					return
				}
			}
		}
	}
}

// Enumerate fetches the index page of src and lazily yields one task per
// product anchor. Script links, nameless entries and links to other hosts
// are skipped. Fetch and parse failures are yielded once, ending the sequence.
func (e *Enumerator) Enumerate(ctx context.Context, src Source) iter.Seq2[equipment.FetchTask, error] {
	return func(yield func(equipment.FetchTask, error) bool) {
		base, err := url.Parse(src.IndexURL)
		if err != nil {
			yield(equipment.FetchTask{}, fmt.Errorf("source %s: parse index url: %w", src.ID, err))
			return
		}

		body, err := e.fetcher.Fetch(ctx, src.IndexURL)
		if err != nil {
			yield(equipment.FetchTask{}, fmt.Errorf("source %s: %w", src.ID, err))
			return
		}

		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			yield(equipment.FetchTask{}, fmt.Errorf("source %s: parse index page: %w", src.ID, err))
			return
		}

		log := e.log.With(logger.String("source", src.ID))
		anchors := doc.Find(src.ItemSelector)
		log.Info("Enumerating index page",
			logger.String("url", src.IndexURL),
			logger.Int("anchors", anchors.Length()),
		)

		for i := range anchors.Length() {
			task, ok := e.task(log, src, base, anchors.Eq(i))
			if !ok {
				continue
			}
			if !yield(task, nil) {
				return
			}
		}
	}
}

func (e *Enumerator) task(
	log logger.Logger,
	src Source,
	base *url.URL,
	anchor *goquery.Selection,
) (equipment.FetchTask, bool) {
	href, _ := anchor.Attr("href")
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		log.Debug("Skipping non-product anchor", logger.String("href", href))
		return equipment.FetchTask{}, false
	}

	name := displayName(anchor, src.NameSelector)
	if name == "" {
		log.Warn("Skipping product without a name", logger.String("href", href))
		return equipment.FetchTask{}, false
	}

	ref, err := url.Parse(href)
	if err != nil {
		log.Warn("Skipping unparsable link", logger.String("name", name), logger.String("href", href), logger.Error(err))
		return equipment.FetchTask{}, false
	}

	dest := base.ResolveReference(ref)
	if !strings.EqualFold(dest.Hostname(), base.Hostname()) {
		log.Warn("Skipping product on another host",
			logger.String("name", name),
			logger.String("href", href),
			logger.String("expected_host", base.Hostname()),
		)
		return equipment.FetchTask{}, false
	}

	dest.RawQuery = ""
	dest.Fragment = ""
	if src.SpecSuffix != "" {
		dest = dest.ResolveReference(&url.URL{Path: src.SpecSuffix})
	}

	return equipment.FetchTask{
		Name:          name,
		URL:           dest.String(),
		Category:      src.Category,
		Vendor:        src.Vendor,
		Brand:         src.Brand,
		Source:        src.ID,
		TableSelector: src.TableSelector,
	}, true
}

func displayName(anchor *goquery.Selection, selector string) string {
	sel := anchor
	if selector != "" {
		sel = anchor.Find(selector).First()
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// Collect drains a task sequence, stopping at the first error.
func Collect(seq iter.Seq2[equipment.FetchTask, error]) ([]equipment.FetchTask, error) {
	var tasks []equipment.FetchTask
	for task, err := range seq {
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}
