// Package fgacore is the top-level entry point: Engine wires a TupleStore
// and a ModelStore into the Check/Expand/ListObjects/ListUsers API transports
// call (spec.md §6). See engine.go.
package fgacore

import "github.com/fgacore/fgacore/pkg/resolver"

// The six error kinds are defined once in pkg/resolver. These re-exports let
// a caller of Engine test Check errors without reaching into pkg/resolver
// directly. pkg/expand and pkg/reverse raise their own package-local
// not-found and not-only-direct error types, which these predicates do not
// recognize; errors from a resolver.Checker that ListObjects runs internally
// pass through unchanged and are recognized.
var (
	// ErrDepthExceeded means a check exceeded its depth budget. Never
	// memoized by Cache; never translated into a deny.
	ErrDepthExceeded = resolver.ErrDepthExceeded

	// ErrCancelled means a check's context was cancelled mid-flight. Never
	// memoized by Cache; never translated into a deny.
	ErrCancelled = resolver.ErrCancelled
)

// IsNotFoundRelation reports whether err means the model has no such
// relation on the object type.
func IsNotFoundRelation(err error) bool { return resolver.IsNotFoundRelation(err) }

// IsNoDirectTypes reports whether err means a This rewrite declared no
// directly related user types — a schema bug.
func IsNoDirectTypes(err error) bool { return resolver.IsNoDirectTypes(err) }

// IsDepthExceeded reports whether err is ErrDepthExceeded.
func IsDepthExceeded(err error) bool { return resolver.IsDepthExceeded(err) }

// IsNotOnlyDirect reports whether err means a tupleset relation was
// populated by something other than a Direct reference.
func IsNotOnlyDirect(err error) bool { return resolver.IsNotOnlyDirect(err) }

// IsStorageError reports whether err wraps a TupleStore/ModelStore failure.
func IsStorageError(err error) bool { return resolver.IsStorageError(err) }

// IsCancelled reports whether err is ErrCancelled.
func IsCancelled(err error) bool { return resolver.IsCancelled(err) }
