package grammar

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sgryjp/cldb/internal/equipment"
)

// Pair is one recognized attribute value.
type Pair struct {
	Attr  equipment.Attribute
	Value equipment.Value
}

// Rule turns a normalized raw value into attribute pairs.
// Implementations are RangeRule, NumberRule, CompositeMinRule, VocabularyRule and ClassifyRule.
type Rule interface {
	apply(value string) ([]Pair, error)
}

const number = `([0-9]+(?:\.[0-9]+)?)`

var (
	rangePattern  = regexp.MustCompile(`^` + number + `\s*mm\s*[-~〜–—]\s*` + number + `\s*mm`)
	singlePattern = regexp.MustCompile(`^` + number + `\s*mm`)
	// Longer units first so "mm" never matches as "m".
	measurePattern    = regexp.MustCompile(number + `\s*(mm|cm|m)\b`)
	annotationPattern = regexp.MustCompile(`\([^()]*\)`)
	// Focal lengths quoted next to a distance, e.g. "焦点距離24mm時0.29m".
	focalReferencePattern = regexp.MustCompile(`(?i)(?:焦点距離|\bat)\s*` + number + `\s*mm`)
)

// unitToMillimeters converts supported length units to millimeters.
var unitToMillimeters = map[string]float64{
	"mm": 1,
	"cm": 10,
	"m":  1000,
}

// RangeRule parses "<n>mm - <n>mm" into a min/max pair; a single "<n>mm"
// fills both. A minimum above the maximum is malformed.
type RangeRule struct {
	Min equipment.Attribute
	Max equipment.Attribute
}

func (r RangeRule) apply(value string) ([]Pair, error) {
	var lo, hi float64
	if m := rangePattern.FindStringSubmatch(value); m != nil {
		lo, hi = mustFloat(m[1]), mustFloat(m[2])
	} else if m := singlePattern.FindStringSubmatch(value); m != nil {
		lo = mustFloat(m[1])
		hi = lo
	} else {
		return nil, mismatch("")
	}

	if lo > hi {
		return nil, mismatch(fmt.Sprintf("range minimum %s exceeds maximum %s",
			equipment.FormatNumber(lo), equipment.FormatNumber(hi)))
	}

	return []Pair{
		{Attr: r.Min, Value: equipment.NumberValue(lo)},
		{Attr: r.Max, Value: equipment.NumberValue(hi)},
	}, nil
}

// NumberRule parses a number following a fixed prefix, e.g. "f/2.8".
type NumberRule struct {
	Attr   equipment.Attribute
	Prefix string
}

func (r NumberRule) apply(value string) ([]Pair, error) {
	if !strings.HasPrefix(strings.ToLower(value), strings.ToLower(r.Prefix)) {
		return nil, mismatch("")
	}

	m := singleNumber.FindStringSubmatch(value[len(r.Prefix):])
	if m == nil {
		return nil, mismatch("")
	}

	return []Pair{{Attr: r.Attr, Value: equipment.NumberValue(mustFloat(m[1]))}}, nil
}

var singleNumber = regexp.MustCompile(`^\s*` + number)

// CompositeMinRule takes the smallest of a delimited list of measurements,
// e.g. "0.5m (at 50mm), 0.52m (at 70mm)". Units are converted to millimeters
// and parenthesized annotations and quoted focal lengths are ignored.
type CompositeMinRule struct {
	Attr equipment.Attribute
}

func (r CompositeMinRule) apply(value string) ([]Pair, error) {
	stripped := annotationPattern.ReplaceAllString(value, " ")
	stripped = focalReferencePattern.ReplaceAllString(stripped, " ")

	best := math.Inf(1)
	for _, m := range measurePattern.FindAllStringSubmatch(stripped, -1) {
		mm := mustFloat(m[1]) * unitToMillimeters[m[2]]
		best = math.Min(best, mm)
	}

	if math.IsInf(best, 1) {
		return nil, mismatch("no measurement found")
	}

	return []Pair{{Attr: r.Attr, Value: equipment.NumberValue(roundMillimeters(best))}}, nil
}

// VocabularyRule translates a value through an exact lookup. Keys are
// compared with all whitespace removed.
type VocabularyRule struct {
	Attr  equipment.Attribute
	Terms map[string]string
}

func (r VocabularyRule) apply(value string) ([]Pair, error) {
	key := compact(value)
	for term, translated := range r.Terms {
		if compact(Normalize(term)) == key {
			return []Pair{{Attr: r.Attr, Value: equipment.TextValue(translated)}}, nil
		}
	}
	return nil, vocabularyMiss()
}

// Term is one entry of a ClassifyRule.
type Term struct {
	Contains string
	Value    string
}

// ClassifyRule yields the value of the first term whose text occurs in the raw value.
type ClassifyRule struct {
	Attr  equipment.Attribute
	Terms []Term
}

func (r ClassifyRule) apply(value string) ([]Pair, error) {
	haystack := compact(value)
	for _, t := range r.Terms {
		if strings.Contains(haystack, compact(Normalize(t.Contains))) {
			return []Pair{{Attr: r.Attr, Value: equipment.TextValue(t.Value)}}, nil
		}
	}
	return nil, vocabularyMiss()
}

// mustFloat parses text already validated by the number pattern.
func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic(fmt.Sprintf("grammar: number pattern accepted %q: %v", s, err))
	}
	return f
}

// roundMillimeters removes float noise introduced by unit conversion (0.29 * 1000).
func roundMillimeters(mm float64) float64 {
	const scale = 1e6
	return math.Round(mm*scale) / scale
}
