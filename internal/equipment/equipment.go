// Package equipment defines the camera and lens records shared by the fetch pipeline.
package equipment

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Category selects which kind of equipment a run targets.
type Category string

const (
	CategoryLens   Category = "lens"
	CategoryCamera Category = "camera"
)

// ErrInvalidCategory is returned for a category selector other than lens or camera.
var ErrInvalidCategory = errors.New("invalid equipment category")

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategoryLens, CategoryCamera}
}

// ParseCategory converts a command-line target into a Category.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryLens, CategoryCamera:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q (must be %q or %q)", ErrInvalidCategory, s, CategoryLens, CategoryCamera)
	}
}

// Attribute names a recognized spec attribute. The value doubles as the snapshot column header.
type Attribute string

const (
	AttrMount            Attribute = "Mount"
	AttrMinFocalLength   Attribute = "Min. Focal Length (mm)"
	AttrMaxFocalLength   Attribute = "Max. Focal Length (mm)"
	AttrMinFValue        Attribute = "Min. F-Value"
	AttrMaxFValue        Attribute = "Max. F-Value"
	AttrMinFocusDistance Attribute = "Min. Focus Distance (mm)"
	AttrSize             Attribute = "Size"
)

// Value is a recognized attribute value: either text or a number.
type Value struct {
	Text    string
	Number  float64
	Numeric bool
}

// TextValue wraps a categorical value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// NumberValue wraps a numeric value.
func NumberValue(f float64) Value {
	return Value{Number: f, Numeric: true}
}

// String renders the value the way snapshots store it.
func (v Value) String() string {
	if v.Numeric {
		return FormatNumber(v.Number)
	}
	return v.Text
}

// FormatNumber renders f in its shortest round-trip form, switching to an
// exponent only for very small or large magnitudes.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Record is one scraped product.
type Record struct {
	ID       string
	Name     string
	Brand    string
	Category Category
	Attrs    map[Attribute]Value
	Keywords Keywords
	Comment  string
	// Extra holds snapshot columns outside the schema, kept verbatim.
	Extra map[string]string
}

// NewRecord returns a record with the seeded identity fields and no attributes.
func NewRecord(category Category, id, name, brand string) Record {
	return Record{
		ID:       id,
		Name:     name,
		Brand:    brand,
		Category: category,
		Attrs:    make(map[Attribute]Value),
	}
}

// Text returns the textual attribute value, or "" when unset.
func (r Record) Text(attr Attribute) string {
	return r.Attrs[attr].Text
}

// Number returns the numeric attribute value and whether it is set.
func (r Record) Number(attr Attribute) (float64, bool) {
	v, ok := r.Attrs[attr]
	if !ok || !v.Numeric {
		return 0, false
	}
	return v.Number, true
}

// Clone returns a deep copy so callers can adjust a record without aliasing its maps.
func (r Record) Clone() Record {
	out := r
	out.Attrs = make(map[Attribute]Value, len(r.Attrs))
	for k, v := range r.Attrs {
		out.Attrs[k] = v
	}
	out.Keywords = append(Keywords(nil), r.Keywords...)
	if r.Extra != nil {
		out.Extra = maps.Clone(r.Extra)
	}
	return out
}

// FetchTask is one product page to fetch, produced by the source enumerator.
type FetchTask struct {
	// Name is the display name shown on the index page.
	Name string
	// URL is the absolute location of the product's spec page.
	URL string
	// Category is the equipment category of the page.
	Category Category
	// Vendor keys the term grammar, e.g. "nikon".
	Vendor string
	// Brand is written to the Brand column of every record from this task.
	Brand string
	// Source is the catalog source that produced the task.
	Source string
	// TableSelector locates the spec table on the page.
	TableSelector string
}

// String identifies the task in logs and error messages.
func (t FetchTask) String() string {
	return fmt.Sprintf("%s (%s)", t.Name, t.URL)
}
