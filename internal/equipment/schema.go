package equipment

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Fixed column headers shared by every category.
const (
	ColumnID       = "ID"
	ColumnName     = "Name"
	ColumnBrand    = "Brand"
	ColumnKeywords = "Keywords"
	ColumnComment  = "Comment"
)

// SortKey is one component of the snapshot ordering.
type SortKey struct {
	Column  string
	Numeric bool
}

// Schema describes the snapshot layout of one category.
type Schema struct {
	Category Category
	// Columns is the header in output order.
	Columns []string
	// Required lists the attributes a page must yield exactly once.
	Required []Attribute
	// Numeric marks the attributes stored as numbers.
	Numeric map[Attribute]bool
	// SortKeys is the ordering priority list.
	SortKeys []SortKey
}

var (
	lensSchema = &Schema{
		Category: CategoryLens,
		Columns: []string{
			ColumnID, ColumnName, ColumnBrand, string(AttrMount),
			string(AttrMinFocalLength), string(AttrMaxFocalLength),
			string(AttrMinFValue), string(AttrMaxFValue),
			string(AttrMinFocusDistance), ColumnKeywords, ColumnComment,
		},
		Required: []Attribute{
			AttrMount, AttrMinFocalLength, AttrMaxFocalLength,
			AttrMinFValue, AttrMaxFValue, AttrMinFocusDistance,
		},
		Numeric: map[Attribute]bool{
			AttrMinFocalLength:   true,
			AttrMaxFocalLength:   true,
			AttrMinFValue:        true,
			AttrMaxFValue:        true,
			AttrMinFocusDistance: true,
		},
		SortKeys: []SortKey{
			{Column: ColumnBrand},
			{Column: string(AttrMount)},
			{Column: string(AttrMinFocalLength), Numeric: true},
			{Column: string(AttrMaxFocalLength), Numeric: true},
			{Column: ColumnName},
		},
	}

	cameraSchema = &Schema{
		Category: CategoryCamera,
		Columns: []string{
			ColumnID, ColumnName, ColumnBrand, string(AttrMount),
			string(AttrSize), ColumnKeywords, ColumnComment,
		},
		Required: []Attribute{AttrMount, AttrSize},
		Numeric:  map[Attribute]bool{},
		SortKeys: []SortKey{
			{Column: ColumnBrand},
			{Column: string(AttrMount)},
			{Column: ColumnName},
		},
	}
)

// SchemaFor returns the snapshot schema of a category.
func SchemaFor(c Category) (*Schema, error) {
	switch c {
	case CategoryLens:
		return lensSchema, nil
	case CategoryCamera:
		return cameraSchema, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
	}
}

// Cell returns the rendered value of a column for r.
func (s *Schema) Cell(r Record, column string) string {
	switch column {
	case ColumnID:
		return r.ID
	case ColumnName:
		return r.Name
	case ColumnBrand:
		return r.Brand
	case ColumnKeywords:
		return r.Keywords.String()
	case ColumnComment:
		return r.Comment
	default:
		if !s.hasColumn(column) {
			return r.Extra[column]
		}
		v, ok := r.Attrs[Attribute(column)]
		if !ok {
			return ""
		}
		return v.String()
	}
}

// SetCell stores a rendered column value into r. Empty numeric cells leave the attribute unset.
// Columns outside the schema go to r.Extra.
func (s *Schema) SetCell(r *Record, column, cell string) error {
	switch column {
	case ColumnID:
		r.ID = cell
	case ColumnName:
		r.Name = cell
	case ColumnBrand:
		r.Brand = cell
	case ColumnKeywords:
		r.Keywords = ParseKeywords(cell)
	case ColumnComment:
		r.Comment = cell
	default:
		attr := Attribute(column)
		if !s.hasColumn(column) {
			if r.Extra == nil {
				r.Extra = make(map[string]string)
			}
			r.Extra[column] = cell
			return nil
		}
		if r.Attrs == nil {
			r.Attrs = make(map[Attribute]Value)
		}
		if !s.Numeric[attr] {
			r.Attrs[attr] = TextValue(cell)
			return nil
		}
		if cell == "" {
			return nil
		}
		f, err := parseNumber(cell)
		if err != nil {
			return fmt.Errorf("column %q: %w", column, err)
		}
		r.Attrs[attr] = NumberValue(f)
	}
	return nil
}

// ExtraColumns returns the columns of header outside the schema, in header order.
func (s *Schema) ExtraColumns(header []string) []string {
	var extra []string
	for _, col := range header {
		if !s.hasColumn(col) && !slices.Contains(extra, col) {
			extra = append(extra, col)
		}
	}
	return extra
}

func (s *Schema) hasColumn(column string) bool {
	return slices.Contains(s.Columns, column)
}

func parseNumber(cell string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", cell, err)
	}
	return f, nil
}
