// Package assembler builds equipment records from the rows of a spec table.
package assembler

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sgryjp/cldb/internal/equipment"
	"github.com/sgryjp/cldb/internal/grammar"
)

// Outcome tells whether a page produced a record.
type Outcome int

const (
	// OutcomeSkip means the page does not describe a standalone, complete product.
	OutcomeSkip Outcome = iota
	// OutcomeRecord means Result.Record is valid.
	OutcomeRecord
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRecord:
		return "record"
	default:
		return "skip"
	}
}

// Skip reasons.
const (
	ReasonTerminal   = "not a standalone product"
	ReasonIncomplete = "incomplete"
)

// Result is the outcome of assembling one page. Failures are returned as errors.
type Result struct {
	Outcome Outcome
	Record  equipment.Record
	Reason  string
}

// Recognizer turns a label/value pair into attributes.
type Recognizer interface {
	Recognize(vendor string, category equipment.Category, label, raw string) (grammar.Recognition, error)
}

// Assembler applies a recognizer to every row of a page.
type Assembler struct {
	recognizer Recognizer
	newID      func() string
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithIDGenerator replaces the random identifier source.
func WithIDGenerator(fn func() string) Option {
	return func(a *Assembler) {
		a.newID = fn
	}
}

// New creates an Assembler.
func New(recognizer Recognizer, opts ...Option) *Assembler {
	a := &Assembler{
		recognizer: recognizer,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble seeds a record for task and fills it from rows. Later values for
// an attribute overwrite earlier ones, but the record is only valid when every
// required attribute was recognized exactly once.
func (a *Assembler) Assemble(task equipment.FetchTask, rows []Row) (Result, error) {
	schema, err := equipment.SchemaFor(task.Category)
	if err != nil {
		return Result{}, err
	}

	record := equipment.NewRecord(task.Category, a.newID(), task.Name, task.Brand)
	counts := make(map[equipment.Attribute]int, len(schema.Required))

	for _, row := range rows {
		rec, err := a.recognizer.Recognize(task.Vendor, task.Category, row.Label, row.Value)
		if err != nil {
			return Result{}, err
		}
		if rec.Terminal {
			return Result{Outcome: OutcomeSkip, Reason: ReasonTerminal}, nil
		}
		for _, p := range rec.Pairs {
			record.Attrs[p.Attr] = p.Value
			counts[p.Attr]++
		}
	}

	if problems := completeness(schema, counts); len(problems) > 0 {
		return Result{
			Outcome: OutcomeSkip,
			Reason:  fmt.Sprintf("%s: %s", ReasonIncomplete, strings.Join(problems, ", ")),
		}, nil
	}

	return Result{Outcome: OutcomeRecord, Record: record}, nil
}

func completeness(schema *equipment.Schema, counts map[equipment.Attribute]int) []string {
	var problems []string
	required := make(map[equipment.Attribute]bool, len(schema.Required))
	for _, attr := range schema.Required {
		required[attr] = true
		switch n := counts[attr]; {
		case n == 0:
			problems = append(problems, fmt.Sprintf("missing %q", attr))
		case n > 1:
			problems = append(problems, fmt.Sprintf("%q recognized %d times", attr, n))
		}
	}
	for attr := range counts {
		if !required[attr] {
			problems = append(problems, fmt.Sprintf("unexpected %q", attr))
		}
	}
	return problems
}
