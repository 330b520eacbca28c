// Package model defines the compiled authorization schema the resolver,
// cache, and expanders operate on: object types, their relations, and each
// relation's rewrite tree. A Model is produced externally — by pkg/compile
// from OpenFGA DSL text, or by any other compiler that can populate these
// types — and is immutable for the lifetime of every request that holds a
// reference to it.
package model

import "github.com/fgacore/fgacore/pkg/tuple"

// Model is a compiled authorization schema: an immutable snapshot that a
// CheckRequest pins for the duration of one request.
type Model struct {
	TenantID      string
	ModelID       string
	SchemaVersion string
	Types         map[tuple.ObjectType]*TypeDef
}

// TypeDef is the set of relations defined on one object type.
type TypeDef struct {
	Name      tuple.ObjectType
	Relations map[tuple.Relation]*Relation
}

// Relation is one named edge label on a TypeDef: how its userset is
// computed (Rewrite) and, for This leaves, which subject shapes are valid.
type Relation struct {
	Name            tuple.Relation
	Rewrite         Rewrite
	DirectlyRelated []RelationReference
}

// GetRelation looks up a relation on an object type, returning
// (nil, false) if either the type or the relation is undefined.
func (m *Model) GetRelation(objectType tuple.ObjectType, relation tuple.Relation) (*Relation, bool) {
	td, ok := m.Types[objectType]
	if !ok {
		return nil, false
	}
	rel, ok := td.Relations[relation]
	return rel, ok
}

// RefKind discriminates the three RelationReference shapes.
type RefKind int

const (
	// RefDirect matches bare "type:id" tuples.
	RefDirect RefKind = iota
	// RefUserset matches "type:id#relation" tuples — a userset reference.
	RefUserset
	// RefWildcard matches "type:*" tuples, granting to every ID of Type.
	RefWildcard
)

// RelationReference describes one subject shape a relation's This leaf may
// accept: a bare type, a userset reference (type#relation), or a wildcard.
type RelationReference struct {
	Kind     RefKind
	Type     tuple.ObjectType
	Relation tuple.Relation // only set when Kind == RefUserset
}

// Direct builds a RefDirect reference for the given subject type.
func Direct(t tuple.ObjectType) RelationReference {
	return RelationReference{Kind: RefDirect, Type: t}
}

// Userset builds a RefUserset reference for type#relation.
func Userset(t tuple.ObjectType, r tuple.Relation) RelationReference {
	return RelationReference{Kind: RefUserset, Type: t, Relation: r}
}

// WildcardRef builds a RefWildcard reference for the given subject type.
func WildcardRef(t tuple.ObjectType) RelationReference {
	return RelationReference{Kind: RefWildcard, Type: t}
}
