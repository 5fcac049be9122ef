// Package reconcile merges freshly assembled records with the previous snapshot.
package reconcile

import (
	"github.com/sgryjp/cldb/internal/equipment"
)

// Entry is what the previous snapshot knows about one product.
type Entry struct {
	ID       string
	Keywords equipment.Keywords
}

// Prior looks up products of the previous snapshot by folded name.
// Implementations must be safe for concurrent reads.
type Prior interface {
	Lookup(foldedName string) (Entry, bool)
}

// Reconciler carries identifiers and keywords forward from a prior snapshot.
type Reconciler struct {
	prior Prior
}

// New creates a Reconciler. A nil prior reuses nothing.
func New(prior Prior) *Reconciler {
	return &Reconciler{prior: prior}
}

// Reconcile returns a copy of rec with the prior identifier, when one exists
// for its name, and with the union of prior, existing and inferred keywords.
// The boolean reports whether an identifier was reused.
func (r *Reconciler) Reconcile(rec equipment.Record) (equipment.Record, bool) {
	out := rec.Clone()

	var (
		priorKeywords equipment.Keywords
		reused        bool
	)
	if r.prior != nil {
		if entry, ok := r.prior.Lookup(equipment.FoldName(rec.Name)); ok {
			out.ID = entry.ID
			priorKeywords = entry.Keywords
			reused = true
		}
	}

	out.Keywords = out.Keywords.Union(priorKeywords, InferKeywords(out))

	return out, reused
}
