package model

import "github.com/fgacore/fgacore/pkg/tuple"

// RewriteKind discriminates the Rewrite variants of spec.md §3.
type RewriteKind int

const (
	// This looks up direct tuples matching the request.
	This RewriteKind = iota
	// ComputedUserset redirects to another relation on the same object.
	ComputedUserset
	// TupleToUserset follows tuples of a tupleset relation on the object,
	// then checks a computed relation on each reached object.
	TupleToUserset
	// Union is a short-circuiting OR over child rewrites.
	Union
	// Intersection is a short-circuiting AND over child rewrites.
	Intersection
	// Difference is base AND NOT subtract.
	Difference
)

// Rewrite is the variant tree describing how a relation's extension is
// computed. Exactly the fields relevant to Kind are populated; callers
// dispatch on Kind and must not assume zero-value fields are meaningful for
// other kinds.
type Rewrite struct {
	Kind RewriteKind

	// ComputedUserset
	ComputedRelation tuple.Relation

	// TupleToUserset
	TuplesetRelation    tuple.Relation
	TTUComputedRelation tuple.Relation

	// Union / Intersection
	Children []Rewrite

	// Difference
	Base     *Rewrite
	Subtract *Rewrite
}

// NewThis builds a This rewrite leaf.
func NewThis() Rewrite { return Rewrite{Kind: This} }

// NewComputedUserset builds a ComputedUserset rewrite redirecting to relation.
func NewComputedUserset(relation tuple.Relation) Rewrite {
	return Rewrite{Kind: ComputedUserset, ComputedRelation: relation}
}

// NewTupleToUserset builds a TupleToUserset rewrite.
func NewTupleToUserset(tuplesetRelation, computedRelation tuple.Relation) Rewrite {
	return Rewrite{Kind: TupleToUserset, TuplesetRelation: tuplesetRelation, TTUComputedRelation: computedRelation}
}

// NewUnion builds a Union rewrite over children, kept in source order.
func NewUnion(children ...Rewrite) Rewrite {
	return Rewrite{Kind: Union, Children: children}
}

// NewIntersection builds an Intersection rewrite over children, kept in
// source order.
func NewIntersection(children ...Rewrite) Rewrite {
	return Rewrite{Kind: Intersection, Children: children}
}

// NewDifference builds a Difference rewrite: base AND NOT subtract.
func NewDifference(base, subtract Rewrite) Rewrite {
	return Rewrite{Kind: Difference, Base: &base, Subtract: &subtract}
}
