// Package snapshot orders, renders and stores equipment snapshots.
package snapshot

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/sgryjp/cldb/internal/equipment"
)

// Sort orders records in place by the schema's sort keys. Text keys compare
// case-insensitively, numeric keys numerically with missing values last.
// Equal records keep their relative order.
func Sort(records []equipment.Record, schema *equipment.Schema) {
	slices.SortStableFunc(records, func(a, b equipment.Record) int {
		for _, key := range schema.SortKeys {
			var c int
			if key.Numeric {
				c = compareNumbers(a, b, equipment.Attribute(key.Column))
			} else {
				c = strings.Compare(
					strings.ToLower(schema.Cell(a, key.Column)),
					strings.ToLower(schema.Cell(b, key.Column)),
				)
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func compareNumbers(a, b equipment.Record, attr equipment.Attribute) int {
	x, okA := a.Number(attr)
	y, okB := b.Number(attr)
	switch {
	case okA && okB:
		return cmp.Compare(x, y)
	case okA:
		return -1
	case okB:
		return 1
	default:
		return 0
	}
}

// Encode renders records as a table in schema column order, followed by
// any extra columns read from an earlier snapshot.
func Encode(records []equipment.Record, schema *equipment.Schema, extra ...string) Table {
	columns := slices.Concat(schema.Columns, extra)
	t := make(Table, 0, len(records)+1)
	t = append(t, columns)
	for _, r := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = schema.Cell(r, col)
		}
		t = append(t, row)
	}
	return t
}

// Decode parses a snapshot table back into records. Columns outside the
// schema are kept in each record's Extra.
func Decode(t Table, schema *equipment.Schema) ([]equipment.Record, error) {
	if len(t) == 0 {
		return nil, ErrEmptyTable
	}

	header := t[0]
	records := make([]equipment.Record, 0, len(t)-1)
	for i, row := range t[1:] {
		r := equipment.NewRecord(schema.Category, "", "", "")
		for j, col := range header {
			if err := schema.SetCell(&r, col, cell(row, j)); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
		}
		records = append(records, r)
	}
	return records, nil
}
