package assembler

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
)

// ErrMalformedTable is wrapped by TableError.
var ErrMalformedTable = errors.New("malformed spec table")

// TableError reports a spec table that is missing or not made of label/value rows.
type TableError struct {
	Selector string
	// Row is the zero-based row index, or -1 when the table itself is missing.
	Row    int
	Reason string
}

func (e *TableError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("spec table %q: %s", e.Selector, e.Reason)
	}
	return fmt.Sprintf("spec table %q row %d: %s", e.Selector, e.Row, e.Reason)
}

func (e *TableError) Unwrap() error { return ErrMalformedTable }

// Row is one label/value pair of a spec table.
type Row struct {
	Label string
	Value string
}

// ParseSpecTable extracts the rows of the first table matching selector.
// Every row must hold exactly one th and one td.
func ParseSpecTable(body []byte, selector string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, &TableError{Selector: selector, Row: -1, Reason: "not found"}
	}

	var (
		rows     []Row
		rowError error
	)
	table.Find("tr").EachWithBreak(func(i int, tr *goquery.Selection) bool {
		ths, tds := tr.Find("th"), tr.Find("td")
		if ths.Length() != 1 || tds.Length() != 1 {
			rowError = &TableError{
				Selector: selector,
				Row:      i,
				Reason:   fmt.Sprintf("want 1 th and 1 td, got %d th and %d td", ths.Length(), tds.Length()),
			}
			return false
		}
		rows = append(rows, Row{Label: ths.Text(), Value: tds.Text()})
		return true
	})
	if rowError != nil {
		return nil, rowError
	}

	return rows, nil
}
