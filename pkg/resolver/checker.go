package resolver

import "context"

// Checker is the interface every position in the call graph programs
// against: the recursive resolver itself (Local), the deduplicating cache
// wrapper (pkg/cache.Cache), the request-scoped bypass (Decision), and any
// future out-of-process resolver all satisfy it identically (spec.md §9,
// "Polymorphism over Checkers"). Callers that only need to issue a check
// never need to know which of these they're holding.
type Checker interface {
	// Check resolves one CheckRequest to a decision. It must never convert an
	// error into a deny: callers are expected to use the Is* predicates in
	// errors.go to distinguish a real decision from a failure to decide.
	Check(ctx context.Context, req Request) (Result, error)

	// Close releases any resources the Checker holds (connections, cached
	// entries). It is safe to call Close more than once.
	Close() error

	// Name identifies the Checker implementation for logging and metrics.
	Name() string
}
