package compile_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fgacore/fgacore/pkg/compile"
	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

const testSchema = `model
  schema 1.1

type user

type group
  relations
    define member: [user, group#member]

type folder
  relations
    define owner: [user]
    define parent: [folder]
    define viewer: [user, user:*, group#member] or owner or viewer from parent

type document
  relations
    define parent: [folder]
    define blocked: [user]
    define viewer: viewer from parent but not blocked
`

func TestDSLCompilesRewriteTree(t *testing.T) {
	m, err := compile.DSL("acme", "v1", testSchema)
	require.NoError(t, err)
	require.Equal(t, "acme", m.TenantID)
	require.Equal(t, "v1", m.ModelID)
	require.Equal(t, "1.1", m.SchemaVersion)

	folder, ok := m.GetRelation("folder", "viewer")
	require.True(t, ok)
	require.Equal(t, model.Union, folder.Rewrite.Kind)
	require.Len(t, folder.Rewrite.Children, 3)
	require.Equal(t, model.This, folder.Rewrite.Children[0].Kind)
	require.Equal(t, model.ComputedUserset, folder.Rewrite.Children[1].Kind)
	require.Equal(t, model.TupleToUserset, folder.Rewrite.Children[2].Kind)
	require.Equal(t, tuple.Relation("parent"), folder.Rewrite.Children[2].TuplesetRelation)
	require.Equal(t, tuple.Relation("viewer"), folder.Rewrite.Children[2].TTUComputedRelation)

	require.Len(t, folder.DirectlyRelated, 3)
	kinds := map[model.RefKind]int{}
	for _, ref := range folder.DirectlyRelated {
		kinds[ref.Kind]++
	}
	require.Equal(t, 1, kinds[model.RefDirect])
	require.Equal(t, 1, kinds[model.RefWildcard])
	require.Equal(t, 1, kinds[model.RefUserset])

	docViewer, ok := m.GetRelation("document", "viewer")
	require.True(t, ok)
	require.Equal(t, model.Difference, docViewer.Rewrite.Kind)
	require.Equal(t, model.TupleToUserset, docViewer.Rewrite.Base.Kind)
	require.Equal(t, model.ComputedUserset, docViewer.Rewrite.Subtract.Kind)
}

func TestDSLRejectsInvalidSchema(t *testing.T) {
	_, err := compile.DSL("acme", "v1", "not a valid schema")
	require.Error(t, err)
}
