// Package resolver implements the recursive check resolver: given a compiled
// model, a tuple store, and a CheckRequest, it walks the requested relation's
// rewrite tree and returns an allow/deny decision plus the number of
// datastore list calls the decision cost.
package resolver

import (
	"context"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// Option configures a Local resolver.
type Option func(*Local)

// WithDepthBudget overrides the depth budget applied to every top-level
// Request that doesn't already carry one of its own.
func WithDepthBudget(budget int) Option {
	return func(l *Local) { l.depthBudget = budget }
}

// Local is the in-process Checker: it holds the one TupleStore every request
// reads through and walks rewrite trees itself, with no network hop. It is
// the Checker pkg/cache and pkg/resolver.Decision both wrap.
type Local struct {
	store       tuple.Store
	depthBudget int
}

// NewLocal builds a Local resolver over store.
func NewLocal(store tuple.Store, opts ...Option) *Local {
	l := &Local{store: store, depthBudget: DefaultDepthBudget}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Name implements Checker.
func (l *Local) Name() string { return "resolver.Local" }

// Close implements Checker. Local holds no closeable resources of its own;
// the TupleStore it was built with is owned and closed by its caller.
func (l *Local) Close() error { return nil }

// Check implements Checker.
func (l *Local) Check(ctx context.Context, req Request) (Result, error) {
	if req.DepthBudget == 0 {
		req.DepthBudget = l.depthBudget
	}
	return l.check(ctx, req)
}

func (l *Local) check(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, ErrCancelled
	}

	rel, ok := req.Model.GetRelation(req.Key.ObjectType, req.Key.Relation)
	if !ok {
		return Result{}, NewNotFoundRelation(req.Key.ObjectType, req.Key.Relation)
	}

	return l.checkRewrite(ctx, req, rel.Rewrite, rel)
}

// checkRewrite dispatches on the rewrite's Kind, mirroring the order of
// spec.md §3's variant list.
func (l *Local) checkRewrite(ctx context.Context, req Request, rw model.Rewrite, rel *model.Relation) (Result, error) {
	switch rw.Kind {
	case model.This:
		return l.checkDirect(ctx, req, rel)
	case model.ComputedUserset:
		return l.recurse(ctx, req, req.Key.WithRelation(rw.ComputedRelation))
	case model.TupleToUserset:
		return l.checkTupleToUserset(ctx, req, rw)
	case model.Union:
		return l.checkSet(ctx, req, rw.Children, unionCombine)
	case model.Intersection:
		return l.checkSet(ctx, req, rw.Children, intersectionCombine)
	case model.Difference:
		return l.checkDifference(ctx, req, rw)
	default:
		return Result{}, NewNotFoundRelation(req.Key.ObjectType, rel.Name)
	}
}

// checkSet evaluates every child of a Union or Intersection rewrite as a
// lazy sub-check of the *same* object/relation position (the children are
// alternate rewrites of one relation, not a redirection to another
// position), then reduces with combine.
func (l *Local) checkSet(ctx context.Context, req Request, children []model.Rewrite, combine func(context.Context, ...thunk) (Result, error)) (Result, error) {
	rel, ok := req.Model.GetRelation(req.Key.ObjectType, req.Key.Relation)
	if !ok {
		return Result{}, NewNotFoundRelation(req.Key.ObjectType, req.Key.Relation)
	}

	thunks := make([]thunk, len(children))
	for i, child := range children {
		child := child
		thunks[i] = func(ctx context.Context) (Result, error) {
			return l.checkRewrite(ctx, req, child, rel)
		}
	}
	return combine(ctx, thunks...)
}

func (l *Local) checkDifference(ctx context.Context, req Request, rw model.Rewrite) (Result, error) {
	rel, ok := req.Model.GetRelation(req.Key.ObjectType, req.Key.Relation)
	if !ok {
		return Result{}, NewNotFoundRelation(req.Key.ObjectType, req.Key.Relation)
	}

	base := func(ctx context.Context) (Result, error) {
		return l.checkRewrite(ctx, req, *rw.Base, rel)
	}
	subtract := func(ctx context.Context) (Result, error) {
		return l.checkRewrite(ctx, req, *rw.Subtract, rel)
	}
	return differenceCombine(ctx, base, subtract)
}

// recurse applies the depth-budget and cycle-detection bookkeeping of
// Request.descend, then either short-circuits a cycle to deny or continues
// resolution at the new position.
func (l *Local) recurse(ctx context.Context, req Request, key tuple.Key) (Result, error) {
	next, cycle, err := req.descend(key)
	if err != nil {
		return Result{}, err
	}
	if cycle {
		return Result{Allow: false}, nil
	}
	return l.check(ctx, next)
}

func (l *Local) tenantID(req Request) string {
	return req.Model.TenantID
}
