package merge

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/wcmove/internal/wc"
)

// PropResult is the outcome of a property merge.
type PropResult struct {
	// Props is the merged working set. Conflicted names keep their
	// working value.
	Props     wc.Props
	Conflicts []string
	Outcome   Outcome
}

// Props merges the change base -> incoming into working, one property at
// a time. For each name: if incoming did not change it, working wins; if
// working did not change it, incoming wins; if both agree, that value is
// used; otherwise the name conflicts.
func Props(base, incoming, working wc.Props) PropResult {
	names := mapset.NewThreadUnsafeSet[string]()
	for _, set := range []wc.Props{base, incoming, working} {
		for name := range set {
			names.Add(name)
		}
	}
	sorted := names.ToSlice()
	slices.Sort(sorted)

	out := wc.Props{}
	var conflicts []string
	for _, name := range sorted {
		b, hasB := base[name]
		l, hasL := incoming[name]
		r, hasR := working[name]

		var v string
		var has bool
		switch {
		case hasL == hasB && l == b:
			v, has = r, hasR
		case hasR == hasB && r == b:
			v, has = l, hasL
		case hasL == hasR && l == r:
			v, has = l, hasL
		default:
			conflicts = append(conflicts, name)
			v, has = r, hasR
		}
		if has {
			out[name] = v
		}
	}

	if len(out) == 0 {
		out = nil
	}
	res := PropResult{Props: out, Conflicts: conflicts, Outcome: Merged}
	if len(conflicts) > 0 {
		res.Outcome = Conflicted
	}
	return res
}
