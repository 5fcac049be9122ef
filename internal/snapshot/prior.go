package snapshot

import (
	"errors"
	"fmt"

	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/reconcile"
)

var (
	// ErrMissingColumn is returned when a prior snapshot lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
	// ErrConflictingID is returned when one product name maps to two identifiers.
	ErrConflictingID = errors.New("conflicting identifiers")
	// ErrMalformedRow is returned for a prior row without a name or an identifier.
	ErrMalformedRow = errors.New("malformed row")
)

// Prior is the read-only lookup of a previous snapshot, keyed by folded name.
// It is never modified after construction and is safe for concurrent use.
type Prior struct {
	entries map[string]reconcile.Entry
}

// LoadPrior reads a CSV or XLSX snapshot with at least Name and ID columns.
// A Keywords column is used when present.
func LoadPrior(path string) (*Prior, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := NewPrior(t)
	if err != nil {
		return nil, fmt.Errorf("load prior snapshot %s: %w", path, err)
	}
	return p, nil
}

// NewPrior builds the lookup from a snapshot table.
func NewPrior(t Table) (*Prior, error) {
	if len(t) == 0 {
		return nil, ErrEmptyTable
	}

	idx := columnIndex(t[0])
	nameCol, ok := idx[equipment.ColumnName]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, equipment.ColumnName)
	}
	idCol, ok := idx[equipment.ColumnID]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, equipment.ColumnID)
	}
	kwCol, hasKeywords := idx[equipment.ColumnKeywords]

	p := &Prior{entries: make(map[string]reconcile.Entry, len(t)-1)}
	for i, row := range t[1:] {
		line := i + 2
		name, id := cell(row, nameCol), cell(row, idCol)
		if name == "" || id == "" {
			return nil, fmt.Errorf("row %d: %w: name and id are required", line, ErrMalformedRow)
		}

		var kws equipment.Keywords
		if hasKeywords {
			kws = equipment.ParseKeywords(cell(row, kwCol))
		}

		key := equipment.FoldName(name)
		if prev, dup := p.entries[key]; dup {
			if prev.ID != id {
				return nil, fmt.Errorf("row %d: %w for %q: %q and %q", line, ErrConflictingID, name, prev.ID, id)
			}
			kws = prev.Keywords.Union(kws)
		}
		p.entries[key] = reconcile.Entry{ID: id, Keywords: kws}
	}

	return p, nil
}

// Lookup returns the prior entry of a folded name.
func (p *Prior) Lookup(foldedName string) (reconcile.Entry, bool) {
	e, ok := p.entries[foldedName]
	return e, ok
}

// Len returns the number of known products.
func (p *Prior) Len() int {
	return len(p.entries)
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return row[i]
}
