// Package reverse implements reverse expansion (spec.md §4.5): given a
// subject and a relation, find every object the subject could reach
// (ListObjects), or given an object and a relation, find every subject that
// could reach it (ListUsers).
//
// ListUsers walks the relation's rewrite tree forward, the same way
// pkg/resolver does, but accumulates the concrete subjects a This or
// TupleToUserset leaf resolves to instead of a single allow/deny bit —
// structurally the same traversal as pkg/expand, just collecting a flat
// subject set rather than a tree.
//
// ListObjects has no equivalently cheap forward-only traversal: a subject
// can reach an object through an arbitrary nesting of Intersection and
// Difference, which only a real check can evaluate correctly. This package
// therefore grounds ListObjects the way the source system's own expander
// does it for its exact-answer path: collect every object of the requested
// type that appears in the tuple store under any relation, then run a real
// resolver.Checker over each candidate concurrently (under an
// errgroup.Group, with a semaphore channel bounding how many run at once),
// discarding the candidates that don't actually decide
// allow. This is the worklist algorithm from spec.md §4.5 applied at the
// object-identity level rather than the schema-position level: the
// candidate set is the frontier, and resolver.Local's cycle/depth guards
// are reused instead of re-implemented.
package reverse

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/resolver"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// DefaultConcurrency bounds how many candidate objects are checked at once.
const DefaultConcurrency = 8

// Expander answers list_objects/list_users queries over a tuple store.
type Expander struct {
	store       tuple.Store
	concurrency int
}

// Option configures an Expander.
type Option func(*Expander)

// WithConcurrency overrides DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(e *Expander) { e.concurrency = n }
}

// New builds an Expander over store.
func New(store tuple.Store, opts ...Option) *Expander {
	e := &Expander{store: store, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ListObjects returns every objectID of objectType such that
// objectType:objectID#relation would resolve to allow for subject.
func (e *Expander) ListObjects(ctx context.Context, m *model.Model, objectType tuple.ObjectType, relation tuple.Relation, subject tuple.Key, contextual []tuple.ContextualTuple) ([]string, error) {
	if _, ok := m.GetRelation(objectType, relation); !ok {
		return nil, notFoundError{objectType: objectType, relation: relation}
	}

	candidates, err := e.candidateObjectIDs(ctx, m.TenantID, objectType)
	if err != nil {
		return nil, err
	}

	checker := resolver.NewLocal(e.store)

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.concurrency)
	var mu sync.Mutex
	var allowed []string

	for _, id := range candidates {
		id := id
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			key := tuple.NewUsersetKey(objectType, id, relation, subject.UserType, subject.UserID, subject.UserRelation)
			res, err := checker.Check(gctx, resolver.NewRequest(m, key, contextual))
			if err != nil {
				return err
			}
			if res.Allow {
				mu.Lock()
				allowed = append(allowed, id)
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return allowed, nil
}

// candidateObjectIDs returns every distinct objectID stored under
// objectType, across any relation — a superset of the IDs that could
// possibly satisfy any one relation on that type.
func (e *Expander) candidateObjectIDs(ctx context.Context, tenantID string, objectType tuple.ObjectType) ([]string, error) {
	stored, _, err := e.store.List(ctx, tenantID, tuple.Filter{ObjectTypeEq: objectType}, nil)
	if err != nil {
		return nil, err
	}
	seen := map[string]struct{}{}
	var ids []string
	for _, t := range stored {
		if _, ok := seen[t.Key.ObjectID]; ok {
			continue
		}
		seen[t.Key.ObjectID] = struct{}{}
		ids = append(ids, t.Key.ObjectID)
	}
	return ids, nil
}

// ListUsers returns every concrete subject of subjectType that reaches
// object:objectID#relation, by forward-checking the relation's This and
// TupleToUserset leaves and recursing into userset references. Models are
// treated as immutable throughout — every rewrite position is threaded
// explicitly rather than looked up through a relation name, so Intersection
// and Difference children (which have no name of their own) never require
// mutating the model to evaluate.
func (e *Expander) ListUsers(ctx context.Context, m *model.Model, key tuple.Key, subjectType tuple.ObjectType, contextual []tuple.ContextualTuple) ([]string, error) {
	rel, ok := m.GetRelation(key.ObjectType, key.Relation)
	if !ok {
		return nil, notFoundError{objectType: key.ObjectType, relation: key.Relation}
	}

	seen, err := e.listUsers(ctx, m, key, rel.Rewrite, subjectType, contextual)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	return out, nil
}

func (e *Expander) listUsers(ctx context.Context, m *model.Model, key tuple.Key, rw model.Rewrite, subjectType tuple.ObjectType, contextual []tuple.ContextualTuple) (map[string]struct{}, error) {
	switch rw.Kind {
	case model.This:
		filter := tuple.Filter{ObjectTypeEq: key.ObjectType, ObjectIDEq: key.ObjectID, RelationEq: key.Relation}
		stored, _, err := e.store.List(ctx, m.TenantID, filter, nil)
		if err != nil {
			return nil, err
		}
		all := make([]tuple.Key, 0, len(stored))
		for _, t := range stored {
			all = append(all, t.Key)
		}
		for _, ct := range contextual {
			if filter.Matches(ct.Key) {
				all = append(all, ct.Key)
			}
		}

		seen := map[string]struct{}{}
		for _, k := range all {
			if k.IsUserset() {
				sub, err := e.ListUsers(ctx, m, k.WithObject(k.UserType, k.UserID).WithRelation(k.UserRelation), subjectType, contextual)
				if err != nil {
					return nil, err
				}
				for _, id := range sub {
					seen[id] = struct{}{}
				}
				continue
			}
			if k.UserType != subjectType {
				continue
			}
			if k.UserID == tuple.Wildcard {
				seen[tuple.Wildcard] = struct{}{}
				continue
			}
			seen[k.UserID] = struct{}{}
		}
		return seen, nil

	case model.ComputedUserset:
		ids, err := e.ListUsers(ctx, m, key.WithRelation(rw.ComputedRelation), subjectType, contextual)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{}, len(ids))
		for _, id := range ids {
			seen[id] = struct{}{}
		}
		return seen, nil

	case model.TupleToUserset:
		filter := tuple.Filter{ObjectTypeEq: key.ObjectType, ObjectIDEq: key.ObjectID, RelationEq: rw.TuplesetRelation}
		stored, _, err := e.store.List(ctx, m.TenantID, filter, nil)
		if err != nil {
			return nil, err
		}
		seen := map[string]struct{}{}
		for _, t := range stored {
			if t.Key.IsUserset() {
				return nil, notOnlyDirectError{tuplesetRelation: rw.TuplesetRelation}
			}
			sub, err := e.ListUsers(ctx, m, t.Key.WithObject(t.Key.UserType, t.Key.UserID).WithRelation(rw.TTUComputedRelation), subjectType, contextual)
			if err != nil {
				return nil, err
			}
			for _, id := range sub {
				seen[id] = struct{}{}
			}
		}
		return seen, nil

	case model.Union:
		seen := map[string]struct{}{}
		for _, child := range rw.Children {
			sub, err := e.listUsers(ctx, m, key, child, subjectType, contextual)
			if err != nil {
				return nil, err
			}
			for id := range sub {
				seen[id] = struct{}{}
			}
		}
		return seen, nil

	case model.Intersection:
		if len(rw.Children) == 0 {
			return map[string]struct{}{}, nil
		}
		candidates, err := e.listUsers(ctx, m, key, rw.Children[0], subjectType, contextual)
		if err != nil {
			return nil, err
		}
		for _, child := range rw.Children[1:] {
			others, err := e.listUsers(ctx, m, key, child, subjectType, contextual)
			if err != nil {
				return nil, err
			}
			for id := range candidates {
				if _, ok := others[id]; !ok {
					delete(candidates, id)
				}
			}
		}
		return candidates, nil

	case model.Difference:
		base, err := e.listUsers(ctx, m, key, *rw.Base, subjectType, contextual)
		if err != nil {
			return nil, err
		}
		subtract, err := e.listUsers(ctx, m, key, *rw.Subtract, subjectType, contextual)
		if err != nil {
			return nil, err
		}
		for id := range subtract {
			delete(base, id)
		}
		return base, nil

	default:
		return nil, notFoundError{objectType: key.ObjectType, relation: key.Relation}
	}
}

type notFoundError struct {
	objectType tuple.ObjectType
	relation   tuple.Relation
}

func (e notFoundError) Error() string {
	return "reverse: relation " + string(e.relation) + " not found on type " + string(e.objectType)
}

type notOnlyDirectError struct {
	tuplesetRelation tuple.Relation
}

func (e notOnlyDirectError) Error() string {
	return "reverse: tupleset relation " + string(e.tuplesetRelation) + " must only be populated by direct references"
}
