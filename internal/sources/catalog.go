package sources

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sgryjp/cldb/internal/equipment"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog is returned when the source catalog fails validation.
var ErrInvalidCatalog = errors.New("invalid source catalog")

// Source describes one vendor index page and how to read it.
type Source struct {
	ID       string             `yaml:"id"`
	Category equipment.Category `yaml:"category"`
	// Vendor keys the term grammar applied to the product pages.
	Vendor string `yaml:"vendor"`
	Brand  string `yaml:"brand"`
	// IndexURL is the category index page listing the products.
	IndexURL string `yaml:"index_url"`
	// ItemSelector matches the product anchors on the index page.
	ItemSelector string `yaml:"item_selector"`
	// NameSelector finds the display name inside an anchor; empty uses the anchor text.
	NameSelector string `yaml:"name_selector"`
	// SpecSuffix is resolved against the product location to reach its spec page.
	SpecSuffix string `yaml:"spec_suffix"`
	// TableSelector locates the spec table on product pages.
	TableSelector string `yaml:"table_selector"`
}

// Catalog is the ordered list of sources.
type Catalog struct {
	Version int      `yaml:"version"`
	Sources []Source `yaml:"sources"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog file. An empty path selects the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source catalog: %w", err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks that every source is complete and identifiers are unique.
func (c *Catalog) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("%w: no sources", ErrInvalidCatalog)
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if s.ID == "" {
			return fmt.Errorf("%w: source #%d has no id", ErrInvalidCatalog, i+1)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate source id %q", ErrInvalidCatalog, s.ID)
		}
		seen[s.ID] = true

		category, err := equipment.ParseCategory(string(s.Category))
		if err != nil {
			return fmt.Errorf("%w: source %q: %w", ErrInvalidCatalog, s.ID, err)
		}
		c.Sources[i].Category = category

		required := [][2]string{
			{"vendor", s.Vendor},
			{"brand", s.Brand},
			{"item_selector", s.ItemSelector},
			{"table_selector", s.TableSelector},
		}
		for _, f := range required {
			if f[1] == "" {
				return fmt.Errorf("%w: source %q: %s is required", ErrInvalidCatalog, s.ID, f[0])
			}
		}

		u, err := url.Parse(s.IndexURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: source %q: index_url %q must be an absolute http(s) URL",
				ErrInvalidCatalog, s.ID, s.IndexURL)
		}
	}
	return nil
}

// ByCategory returns the sources of a category in catalog order.
func (c *Catalog) ByCategory(category equipment.Category) []Source {
	var out []Source
	for _, s := range c.Sources {
		if s.Category == category {
			out = append(out, s)
		}
	}
	return out
}
