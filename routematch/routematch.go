// Package routematch implements the Route Matcher (spec.md §4.4): given
// (domain, path), selects the single best-matching route from a candidate
// set using a total ordering on domain and path specificity, with a
// deterministic id-lexicographic tie-break.
package routematch

import (
	"sort"
	"strings"

	"github.com/jmazzahacks/api-gatekeeper/model"
)

// Match selects the best-matching route from candidates for (domain, path).
// domain may be empty (treated as "" for domain comparison purposes, which
// only the any-domain "*" pattern and a literal empty-domain route would
// match). Returns (nil, false) when nothing matches.
func Match(domain, path string, candidates []model.Route) (*model.Route, bool) {
	d := strings.ToLower(domain)

	var matched []model.Route
	for _, r := range candidates {
		if r.MatchesPath(path) && r.MatchesDomain(d) {
			matched = append(matched, r)
		}
	}
	if len(matched) == 0 {
		return nil, false
	}

	sort.SliceStable(matched, func(i, j int) bool {
		ki, kj := matched[i].SpecificityKey(), matched[j].SpecificityKey()
		if ki == kj {
			// Deterministic tie-break: lexicographically smaller id wins
			// (spec.md §4.4 step 5, §9).
			return matched[i].ID < matched[j].ID
		}
		// We want the route with the greatest key first.
		return kj.Less(ki)
	})

	best := matched[0]
	return &best, true
}
