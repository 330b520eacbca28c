package resolver

import (
	"context"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// checkDirect resolves a This rewrite leaf (spec.md §4.1).
//
// It issues exactly one datastore list call, merged with any matching
// contextual tuples (which never increment the query counter), then
// classifies the combined set: tuples whose user position is a bare subject
// decide the check directly; tuples whose user position is a userset
// reference become recursive sub-checks asking whether req.Key's subject
// itself stands in that userset's relation, unioned together. A direct match
// short-circuits without paying for the userset sub-checks at all.
func (l *Local) checkDirect(ctx context.Context, req Request, rel *model.Relation) (Result, error) {
	if len(rel.DirectlyRelated) == 0 {
		return Result{}, NewNoDirectTypes(req.Key.ObjectType, rel.Name)
	}

	filter := directFilter(req.Key, rel.DirectlyRelated)

	contextual := matchingContextual(req.ContextualTuples, filter)

	stored, _, err := l.store.List(ctx, l.tenantID(req), filter, nil)
	if err != nil {
		return Result{}, NewStorageError(err)
	}

	all := contextual
	for _, t := range stored {
		all = append(all, t.Key)
	}

	var usersetRefs []tuple.Key
	for _, t := range all {
		if t.IsUserset() {
			usersetRefs = append(usersetRefs, t)
			continue
		}
		if t.MatchesSubject(req.Key.UserType, req.Key.UserID, req.Key.UserRelation) {
			return Result{Allow: true, QueryCount: 1}, nil
		}
	}

	if len(usersetRefs) == 0 {
		return Result{Allow: false, QueryCount: 1}, nil
	}

	thunks := make([]thunk, len(usersetRefs))
	for i, ref := range usersetRefs {
		ref := ref
		thunks[i] = func(ctx context.Context) (Result, error) {
			return l.recurse(ctx, req, req.Key.WithObject(ref.UserType, ref.UserID).WithRelation(ref.UserRelation))
		}
	}

	sub, err := unionCombine(ctx, thunks...)
	if err != nil {
		return Result{}, err
	}
	return Result{Allow: sub.Allow, QueryCount: sub.QueryCount + 1}, nil
}

// directFilter builds the Or-disjunction of subfilters for the declared
// subject shapes of a This leaf. Direct and Wildcard references are narrowed
// to the requesting subject's type, since they can only ever decide the
// check directly. Userset references are included unconditionally,
// regardless of the requester's type, because whether they grant depends on
// a recursive sub-check rather than a type match — narrowing them to the
// requester's type would silently drop exactly the tuples that check_direct
// needs to recurse into (e.g. a "group:eng#member" grant when the requester
// is a "user").
func directFilter(key tuple.Key, refs []model.RelationReference) tuple.Filter {
	f := tuple.Filter{
		ObjectTypeEq: key.ObjectType,
		ObjectIDEq:   key.ObjectID,
		RelationEq:   key.Relation,
	}
	for _, ref := range refs {
		switch ref.Kind {
		case model.RefDirect:
			if ref.Type == key.UserType {
				f.Or = append(f.Or, tuple.Filter{UserTypeEq: ref.Type, UserIDEq: key.UserID, UserRelationNil: true})
			}
		case model.RefWildcard:
			if ref.Type == key.UserType {
				f.Or = append(f.Or, tuple.Filter{UserTypeEq: ref.Type, UserIDIn: []string{key.UserID, tuple.Wildcard}, UserRelationNil: true})
			}
		case model.RefUserset:
			f.Or = append(f.Or, tuple.Filter{UserTypeEq: ref.Type, UserRelationEq: ref.Relation})
		}
	}
	return f
}

// matchingContextual returns the request's contextual tuples whose key
// satisfies filter, so they can be merged with the datastore result without
// ever touching the query counter.
func matchingContextual(tuples []tuple.ContextualTuple, filter tuple.Filter) []tuple.Key {
	var out []tuple.Key
	for _, t := range tuples {
		if filter.Matches(t.Key) {
			out = append(out, t.Key)
		}
	}
	return out
}

// checkTupleToUserset resolves a TupleToUserset rewrite (spec.md §4.1):
// list the tupleset relation's tuples on the object, then issue one
// recursive sub-check per reached object, asking whether req.Key's subject
// stands in the computed relation to that object, unioned together.
func (l *Local) checkTupleToUserset(ctx context.Context, req Request, rw model.Rewrite) (Result, error) {
	filter := tuple.Filter{
		ObjectTypeEq: req.Key.ObjectType,
		ObjectIDEq:   req.Key.ObjectID,
		RelationEq:   rw.TuplesetRelation,
	}

	contextual := matchingContextual(req.ContextualTuples, filter)

	stored, _, err := l.store.List(ctx, l.tenantID(req), filter, nil)
	if err != nil {
		return Result{}, NewStorageError(err)
	}

	all := contextual
	for _, t := range stored {
		all = append(all, t.Key)
	}
	thunks := make([]thunk, 0, len(all))
	for _, t := range all {
		if t.IsUserset() {
			return Result{}, NewNotOnlyDirect(rw.TuplesetRelation)
		}
		t := t
		thunks = append(thunks, func(ctx context.Context) (Result, error) {
			return l.recurse(ctx, req, req.Key.WithObject(t.UserType, t.UserID).WithRelation(rw.TTUComputedRelation))
		})
	}

	if len(thunks) == 0 {
		return Result{Allow: false, QueryCount: 1}, nil
	}

	sub, err := unionCombine(ctx, thunks...)
	if err != nil {
		return Result{}, err
	}
	return Result{Allow: sub.Allow, QueryCount: sub.QueryCount + 1}, nil
}
