// Package grammar recognizes typed equipment attributes in the label/value
// pairs of vendor spec tables.
package grammar

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/sgryjp/cldb/internal/equipment"
)

// Version identifies the revision of the shipped grammars.
const Version = "2"

// Recognition is the result of recognizing one label/value pair.
type Recognition struct {
	// Pairs holds zero or more recognized attributes.
	Pairs []Pair
	// Terminal is set when the value marks the page as not a standalone product.
	Terminal bool
}

// Grammar maps the labels of one vendor and category to rules.
type Grammar struct {
	Vendor   string
	Category equipment.Category
	Version  string
	// Rules is keyed by label. Labels are compared with all whitespace removed.
	Rules map[string]Rule
	// TerminalMarkers flag accessory pages when found in any value.
	TerminalMarkers []string

	once    sync.Once
	index   map[string]Rule
	markers []string
}

// compile indexes rules and markers by their compacted, normalized form.
// Rules and TerminalMarkers must not change afterwards.
func (g *Grammar) compile() {
	g.once.Do(func() {
		g.index = make(map[string]Rule, len(g.Rules))
		for label, r := range g.Rules {
			g.index[compact(Normalize(label))] = r
		}
		g.markers = make([]string, len(g.TerminalMarkers))
		for i, m := range g.TerminalMarkers {
			g.markers[i] = compact(Normalize(m))
		}
	})
}

// Recognize applies the rule registered for label to raw. Unknown labels yield nothing.
func (g *Grammar) Recognize(label, raw string) (Recognition, error) {
	g.compile()
	value := Normalize(raw)

	compacted := compact(value)
	for _, marker := range g.markers {
		if strings.Contains(compacted, marker) {
			return Recognition{Terminal: true}, nil
		}
	}

	rule, ok := g.index[compact(Normalize(label))]
	if !ok {
		return Recognition{}, nil
	}

	pairs, err := rule.apply(value)
	if err != nil {
		return Recognition{}, g.wrap(label, raw, err)
	}

	return Recognition{Pairs: pairs}, nil
}

func (g *Grammar) wrap(label, raw string, err error) error {
	var rf *ruleFailure
	if !errors.As(err, &rf) {
		return fmt.Errorf("%s/%s %q: %w", g.Vendor, g.Category, label, err)
	}
	if rf.vocabulary {
		return &VocabularyError{Vendor: g.Vendor, Category: g.Category, Label: label, Raw: raw}
	}
	return &ParseError{Vendor: g.Vendor, Category: g.Category, Label: label, Raw: raw, Reason: rf.reason}
}

type key struct {
	vendor   string
	category equipment.Category
}

// Table holds the grammars of every supported vendor and category.
// It is immutable after construction and safe for concurrent use.
type Table struct {
	grammars map[key]*Grammar
}

// NewTable builds a table from grammars. A later grammar replaces an earlier
// one registered for the same vendor and category.
func NewTable(grammars ...*Grammar) *Table {
	t := &Table{grammars: make(map[key]*Grammar, len(grammars))}
	for _, g := range grammars {
		g.compile()
		t.grammars[key{vendor: g.Vendor, category: g.Category}] = g
	}
	return t
}

// Default returns the table of shipped grammars.
func Default() *Table {
	return NewTable(NikonLens(), NikonCamera(), SonyCamera())
}

// Lookup returns the grammar of a vendor and category.
func (t *Table) Lookup(vendor string, category equipment.Category) (*Grammar, error) {
	g, ok := t.grammars[key{vendor: vendor, category: category}]
	if !ok {
		return nil, fmt.Errorf("%w for %s/%s", ErrNoGrammar, vendor, category)
	}
	return g, nil
}

// Recognize looks up the grammar of vendor and category and applies it.
func (t *Table) Recognize(vendor string, category equipment.Category, label, raw string) (Recognition, error) {
	g, err := t.Lookup(vendor, category)
	if err != nil {
		return Recognition{}, err
	}
	return g.Recognize(label, raw)
}

// Normalize applies NFKC and collapses runs of whitespace to one space.
// Full-width digits, letters and parentheses become their ASCII forms.
func Normalize(s string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(s)), " ")
}

// compact removes every whitespace rune.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
