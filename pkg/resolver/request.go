package resolver

import (
	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// DefaultDepthBudget is used when a Request is constructed without an
// explicit budget. spec.md §9 leaves the exact default open but recommends
// at least 20; 25 matches the default of the source system this spec is
// distilled from.
const DefaultDepthBudget = 25

// Request is the per-check state threaded through one recursive resolution,
// and through every combinator sub-check it spawns. Requests are cheap to
// copy — descend produces the request a recursive descent should use without
// mutating the parent.
type Request struct {
	Model            *model.Model
	Key              tuple.Key
	ContextualTuples []tuple.ContextualTuple
	DepthBudget      int
	visited          visitedSet
}

// NewRequest builds a top-level Request with the default depth budget and an
// empty visited set.
func NewRequest(m *model.Model, key tuple.Key, contextual []tuple.ContextualTuple) Request {
	return Request{
		Model:            m,
		Key:              key,
		ContextualTuples: contextual,
		DepthBudget:      DefaultDepthBudget,
		visited:          nil,
	}
}

// WithDepthBudget overrides the depth budget (e.g. with an Engine's
// configured budget).
func (r Request) WithDepthBudget(budget int) Request {
	r.DepthBudget = budget
	return r
}

// descend computes the Request a recursive check of key should use.
//
// Per spec.md §4.1: the depth budget is decremented and checked before any
// recursion; then the new position's path fingerprint is checked against the
// path-scoped visited set. A repeat position short-circuits to deny (cycle
// == true, err == nil) rather than recursing again. descend never mutates r,
// so combinator siblings never observe each other's descent.
func (r Request) descend(key tuple.Key) (next Request, cycle bool, err error) {
	newBudget := r.DepthBudget - 1
	if newBudget < 0 {
		return Request{}, false, ErrDepthExceeded
	}
	fingerprint := key.Canonical()
	if r.visited.has(fingerprint) {
		return Request{}, true, nil
	}
	next = r
	next.Key = key
	next.DepthBudget = newBudget
	next.visited = r.visited.with(fingerprint)
	return next, false, nil
}

// Result is the outcome of one check: an allow/deny decision plus the number
// of distinct datastore list calls it took, not counting cache hits.
type Result struct {
	Allow      bool
	QueryCount uint32
}

// visitedSet is an immutable path-scoped set of rewrite-position
// fingerprints. Copy-on-write keeps combinator siblings from observing each
// other's descent, matching spec.md §4.6: membership tests detect any
// position on the *current* descent path, not a global visited set.
type visitedSet map[string]struct{}

func (v visitedSet) has(fingerprint string) bool {
	_, ok := v[fingerprint]
	return ok
}

func (v visitedSet) with(fingerprint string) visitedSet {
	next := make(visitedSet, len(v)+1)
	for k := range v {
		next[k] = struct{}{}
	}
	next[fingerprint] = struct{}{}
	return next
}
