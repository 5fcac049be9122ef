package equipment

import (
	"slices"
	"strings"
)

// keywordSeparator joins keywords in snapshot cells.
const keywordSeparator = ","

// Keywords is a sorted, duplicate-free set of short tags.
type Keywords []string

// ParseKeywords splits a snapshot cell into a keyword set. Both "a,b" and
// "a, b" are accepted; empty items are dropped.
func ParseKeywords(cell string) Keywords {
	var out Keywords
	for item := range strings.SplitSeq(cell, keywordSeparator) {
		if kw := strings.TrimSpace(item); kw != "" {
			out = append(out, kw)
		}
	}
	return out.normalize()
}

// Union returns the sorted union of k and every other set. Neither input is modified.
func (k Keywords) Union(others ...Keywords) Keywords {
	out := append(Keywords(nil), k...)
	for _, o := range others {
		out = append(out, o...)
	}
	return out.normalize()
}

// Contains reports whether kw is in the set.
func (k Keywords) Contains(kw string) bool {
	_, found := slices.BinarySearch(k, kw)
	return found
}

// String renders the set as a comma-joined cell.
func (k Keywords) String() string {
	return strings.Join(k, keywordSeparator)
}

func (k Keywords) normalize() Keywords {
	if len(k) == 0 {
		return nil
	}
	slices.Sort(k)
	return slices.Compact(k)
}
