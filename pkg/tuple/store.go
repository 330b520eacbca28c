package tuple

import "context"

// Store is the external collaborator the resolver and expanders read and
// write relationship tuples through (spec.md §6's TupleStore). It must be
// safe for concurrent use — the resolver shares one Store handle across every
// in-flight request. store/memstore and store/pgstore are the two reference
// implementations this module ships.
type Store interface {
	// List returns tuples matching filter, scoped to tenantID. A nil page
	// requests an unbounded scan; total is populated only when the backing
	// store can report it cheaply.
	List(ctx context.Context, tenantID string, filter Filter, page *Page) (tuples []Tuple, total *int, err error)

	// Save upserts tuples for tenantID.
	Save(ctx context.Context, tenantID string, tuples []Tuple) error

	// Delete removes tuples matching filter, scoped to tenantID.
	Delete(ctx context.Context, tenantID string, filter Filter) error
}
