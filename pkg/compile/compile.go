// Package compile turns OpenFGA DSL text or a protobuf AuthorizationModel
// into a pkg/model.Model. It wraps the official OpenFGA language parser the
// same way the source system's own schema loader does, but keeps the
// rewrite tree intact instead of flattening it into a SQL-evaluable form —
// pkg/resolver, pkg/expand, and pkg/reverse all walk the tree directly, so
// there's nothing downstream of this package to flatten for.
package compile

import (
	"fmt"
	"os"

	openfgav1 "github.com/openfga/api/proto/openfga/v1"
	"github.com/openfga/language/pkg/go/transformer"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

// ErrInvalidSchema wraps any error the DSL parser reports, keeping the
// caller from needing to import the transformer package just to compare
// against its error type.
type ErrInvalidSchema struct{ Err error }

func (e *ErrInvalidSchema) Error() string { return fmt.Sprintf("compile: invalid schema: %v", e.Err) }
func (e *ErrInvalidSchema) Unwrap() error  { return e.Err }

// File reads path and compiles it as OpenFGA DSL text.
func File(tenantID, modelID, path string) (*model.Model, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, not request-supplied
	if err != nil {
		return nil, fmt.Errorf("compile: reading schema file: %w", err)
	}
	return DSL(tenantID, modelID, string(content))
}

// DSL compiles OpenFGA DSL text into a Model scoped to tenantID/modelID.
func DSL(tenantID, modelID, content string) (*model.Model, error) {
	proto, err := transformer.TransformDSLToProto(content)
	if err != nil {
		return nil, &ErrInvalidSchema{Err: err}
	}
	return Proto(tenantID, modelID, proto)
}

// Proto compiles an already-parsed protobuf AuthorizationModel into a
// Model. Exposed directly for callers that already hold a proto model —
// e.g. one fetched from an OpenFGA-compatible model store — without
// round-tripping it through DSL text.
func Proto(tenantID, modelID string, proto *openfgav1.AuthorizationModel) (*model.Model, error) {
	m := &model.Model{
		TenantID:      tenantID,
		ModelID:       modelID,
		SchemaVersion: proto.GetSchemaVersion(),
		Types:         make(map[tuple.ObjectType]*model.TypeDef, len(proto.GetTypeDefinitions())),
	}

	for _, td := range proto.GetTypeDefinitions() {
		typeDef := &model.TypeDef{
			Name:      tuple.ObjectType(td.GetType()),
			Relations: make(map[tuple.Relation]*model.Relation, len(td.GetRelations())),
		}

		directRefs := directlyRelatedByRelation(td)

		for relName, us := range td.GetRelations() {
			rel := tuple.Relation(relName)
			rw, err := convertUserset(us)
			if err != nil {
				return nil, fmt.Errorf("compile: type %q relation %q: %w", td.GetType(), relName, err)
			}
			typeDef.Relations[rel] = &model.Relation{
				Name:            rel,
				Rewrite:         rw,
				DirectlyRelated: directRefs[relName],
			}
		}

		m.Types[typeDef.Name] = typeDef
	}

	return m, nil
}

// directlyRelatedByRelation extracts, for every relation on td, the subject
// shapes its This leaf accepts — the [user], [user:*], and [group#member]
// annotations that live in the type definition's metadata rather than in
// the Userset tree itself.
func directlyRelatedByRelation(td *openfgav1.TypeDefinition) map[string][]model.RelationReference {
	out := make(map[string][]model.RelationReference)
	meta := td.GetMetadata()
	if meta == nil {
		return out
	}
	for relName, relMeta := range meta.GetRelations() {
		for _, ref := range relMeta.GetDirectlyRelatedUserTypes() {
			refType := tuple.ObjectType(ref.GetType())
			switch v := ref.GetRelationOrWildcard().(type) {
			case *openfgav1.RelationReference_Wildcard:
				out[relName] = append(out[relName], model.WildcardRef(refType))
			case *openfgav1.RelationReference_Relation:
				out[relName] = append(out[relName], model.Userset(refType, tuple.Relation(v.Relation)))
			default:
				out[relName] = append(out[relName], model.Direct(refType))
			}
		}
	}
	return out
}

// convertUserset recursively converts a protobuf Userset into a
// model.Rewrite, preserving its shape exactly — no flattening, no
// distributive expansion. Every node pkg/resolver knows how to evaluate
// maps onto exactly one Userset variant.
func convertUserset(us *openfgav1.Userset) (model.Rewrite, error) {
	if us == nil {
		return model.Rewrite{}, fmt.Errorf("compile: nil userset")
	}

	switch v := us.Userset.(type) {
	case *openfgav1.Userset_This:
		return model.NewThis(), nil

	case *openfgav1.Userset_ComputedUserset:
		return model.NewComputedUserset(tuple.Relation(v.ComputedUserset.GetRelation())), nil

	case *openfgav1.Userset_TupleToUserset:
		return model.NewTupleToUserset(
			tuple.Relation(v.TupleToUserset.GetTupleset().GetRelation()),
			tuple.Relation(v.TupleToUserset.GetComputedUserset().GetRelation()),
		), nil

	case *openfgav1.Userset_Union:
		children, err := convertChildren(v.Union.GetChild())
		if err != nil {
			return model.Rewrite{}, err
		}
		return model.NewUnion(children...), nil

	case *openfgav1.Userset_Intersection:
		children, err := convertChildren(v.Intersection.GetChild())
		if err != nil {
			return model.Rewrite{}, err
		}
		return model.NewIntersection(children...), nil

	case *openfgav1.Userset_Difference:
		base, err := convertUserset(v.Difference.GetBase())
		if err != nil {
			return model.Rewrite{}, err
		}
		subtract, err := convertUserset(v.Difference.GetSubtract())
		if err != nil {
			return model.Rewrite{}, err
		}
		return model.NewDifference(base, subtract), nil

	default:
		return model.Rewrite{}, fmt.Errorf("compile: unsupported userset variant %T", v)
	}
}

func convertChildren(children []*openfgav1.Userset) ([]model.Rewrite, error) {
	out := make([]model.Rewrite, len(children))
	for i, c := range children {
		rw, err := convertUserset(c)
		if err != nil {
			return nil, err
		}
		out[i] = rw
	}
	return out, nil
}
