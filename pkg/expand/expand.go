// Package expand builds the forward expansion tree for a relation (spec.md
// §4.4): a structural mirror of the model's rewrite tree, with This leaves
// resolved against the tuple store into the concrete subjects that satisfy
// them, rather than into a single allow/deny bit.
package expand

import (
	"context"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// NodeKind discriminates the Node variants, mirroring model.RewriteKind.
type NodeKind int

const (
	// Leaf lists the concrete subjects a This rewrite resolved to.
	Leaf NodeKind = iota
	// Computed redirects expansion to another relation on the same object.
	Computed
	// TupleToUserset expands to one Node per tupleset-reached object.
	TupleToUserset
	// Union is the union of its Children's expansions.
	Union
	// Intersection is the intersection of its Children's expansions.
	Intersection
	// Difference is Base minus Subtract.
	Difference
)

// Node is one position in an expansion tree.
type Node struct {
	Kind NodeKind

	// Leaf
	Subjects []tuple.Key

	// Computed
	ComputedRelation tuple.Relation
	Computed         *Node

	// TupleToUserset
	TuplesetRelation string
	Branches         []Node

	// Union / Intersection
	Children []Node

	// Difference
	Base     *Node
	Subtract *Node
}

// Expander builds expansion trees over a fixed tuple store.
type Expander struct {
	store tuple.Store
}

// New builds an Expander over store.
func New(store tuple.Store) *Expander {
	return &Expander{store: store}
}

// Expand builds the expansion tree for objectType:objectID#relation under m,
// as of m.TenantID's stored tuples plus any contextual overlay.
func (e *Expander) Expand(ctx context.Context, m *model.Model, key tuple.Key, contextual []tuple.ContextualTuple) (Node, error) {
	rel, ok := m.GetRelation(key.ObjectType, key.Relation)
	if !ok {
		return Node{}, notFoundError{objectType: key.ObjectType, relation: key.Relation}
	}
	return e.expandRewrite(ctx, m, key, rel.Rewrite, rel, contextual)
}

func (e *Expander) expandRewrite(ctx context.Context, m *model.Model, key tuple.Key, rw model.Rewrite, rel *model.Relation, contextual []tuple.ContextualTuple) (Node, error) {
	switch rw.Kind {
	case model.This:
		return e.expandThis(ctx, m.TenantID, key, rel, contextual)
	case model.ComputedUserset:
		next := key.WithRelation(rw.ComputedRelation)
		child, err := e.Expand(ctx, m, next, contextual)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: Computed, ComputedRelation: rw.ComputedRelation, Computed: &child}, nil
	case model.TupleToUserset:
		return e.expandTupleToUserset(ctx, m, key, rw, contextual)
	case model.Union:
		return e.expandSet(ctx, m, key, rw.Children, rel, Union, contextual)
	case model.Intersection:
		return e.expandSet(ctx, m, key, rw.Children, rel, Intersection, contextual)
	case model.Difference:
		base, err := e.expandRewrite(ctx, m, key, *rw.Base, rel, contextual)
		if err != nil {
			return Node{}, err
		}
		subtract, err := e.expandRewrite(ctx, m, key, *rw.Subtract, rel, contextual)
		if err != nil {
			return Node{}, err
		}
		return Node{Kind: Difference, Base: &base, Subtract: &subtract}, nil
	default:
		return Node{}, notFoundError{objectType: key.ObjectType, relation: key.Relation}
	}
}

func (e *Expander) expandSet(ctx context.Context, m *model.Model, key tuple.Key, children []model.Rewrite, rel *model.Relation, kind NodeKind, contextual []tuple.ContextualTuple) (Node, error) {
	out := make([]Node, len(children))
	for i, child := range children {
		n, err := e.expandRewrite(ctx, m, key, child, rel, contextual)
		if err != nil {
			return Node{}, err
		}
		out[i] = n
	}
	return Node{Kind: kind, Children: out}, nil
}

func (e *Expander) expandThis(ctx context.Context, tenantID string, key tuple.Key, rel *model.Relation, contextual []tuple.ContextualTuple) (Node, error) {
	filter := tuple.Filter{
		ObjectTypeEq: key.ObjectType,
		ObjectIDEq:   key.ObjectID,
		RelationEq:   key.Relation,
	}

	stored, _, err := e.store.List(ctx, tenantID, filter, nil)
	if err != nil {
		return Node{}, err
	}

	subjects := make([]tuple.Key, 0, len(stored))
	for _, t := range stored {
		subjects = append(subjects, t.Key)
	}
	for _, t := range contextual {
		if filter.Matches(t.Key) {
			subjects = append(subjects, t.Key)
		}
	}

	return Node{Kind: Leaf, Subjects: subjects}, nil
}

func (e *Expander) expandTupleToUserset(ctx context.Context, m *model.Model, key tuple.Key, rw model.Rewrite, contextual []tuple.ContextualTuple) (Node, error) {
	filter := tuple.Filter{
		ObjectTypeEq: key.ObjectType,
		ObjectIDEq:   key.ObjectID,
		RelationEq:   rw.TuplesetRelation,
	}

	stored, _, err := e.store.List(ctx, m.TenantID, filter, nil)
	if err != nil {
		return Node{}, err
	}

	var reached []tuple.Key
	for _, t := range stored {
		reached = append(reached, t.Key)
	}
	for _, t := range contextual {
		if filter.Matches(t.Key) {
			reached = append(reached, t.Key)
		}
	}

	branches := make([]Node, 0, len(reached))
	for _, t := range reached {
		if t.IsUserset() {
			return Node{}, notOnlyDirectError{tuplesetRelation: rw.TuplesetRelation}
		}
		next := t.WithObject(t.UserType, t.UserID).WithRelation(rw.TTUComputedRelation)
		n, err := e.Expand(ctx, m, next, contextual)
		if err != nil {
			return Node{}, err
		}
		branches = append(branches, n)
	}

	return Node{Kind: TupleToUserset, TuplesetRelation: string(rw.TuplesetRelation), Branches: branches}, nil
}

type notFoundError struct {
	objectType tuple.ObjectType
	relation   tuple.Relation
}

func (e notFoundError) Error() string {
	return "expand: relation " + string(e.relation) + " not found on type " + string(e.objectType)
}

type notOnlyDirectError struct {
	tuplesetRelation tuple.Relation
}

func (e notOnlyDirectError) Error() string {
	return "expand: tupleset relation " + string(e.tuplesetRelation) + " must only be populated by direct references"
}
