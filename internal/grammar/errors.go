package grammar

import (
	"errors"
	"fmt"

	"github.com/sgryjp/cldb/internal/equipment"
)

var (
	// ErrPatternMismatch is wrapped by ParseError.
	ErrPatternMismatch = errors.New("value does not match the expected pattern")

	// ErrVocabularyMiss is wrapped by VocabularyError.
	ErrVocabularyMiss = errors.New("value is not in the controlled vocabulary")

	// ErrNoGrammar is returned when no grammar is registered for a vendor and category.
	ErrNoGrammar = errors.New("no grammar registered")
)

// ParseError reports a recognized label whose value failed its sub-pattern.
type ParseError struct {
	Vendor   string
	Category equipment.Category
	Label    string
	Raw      string
	// Reason is set when the value matched but was semantically invalid.
	Reason string
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s/%s: cannot parse %q value %q", e.Vendor, e.Category, e.Label, e.Raw)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *ParseError) Unwrap() error { return ErrPatternMismatch }

// VocabularyError reports a value missing from a controlled vocabulary.
type VocabularyError struct {
	Vendor   string
	Category equipment.Category
	Label    string
	Raw      string
}

func (e *VocabularyError) Error() string {
	return fmt.Sprintf("%s/%s: no vocabulary entry for %q value %q", e.Vendor, e.Category, e.Label, e.Raw)
}

func (e *VocabularyError) Unwrap() error { return ErrVocabularyMiss }

// ruleFailure is returned by rules; the Grammar attaches vendor and label context.
type ruleFailure struct {
	vocabulary bool
	reason     string
}

func (f *ruleFailure) Error() string {
	if f.vocabulary {
		return "vocabulary miss"
	}
	if f.reason == "" {
		return "pattern mismatch"
	}
	return f.reason
}

func mismatch(reason string) error {
	return &ruleFailure{reason: reason}
}

func vocabularyMiss() error {
	return &ruleFailure{vocabulary: true}
}
