package expand_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fgacore/fgacore/pkg/expand"
	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
)

type fakeStore struct{ tuples []tuple.Tuple }

func (s *fakeStore) List(_ context.Context, _ string, filter tuple.Filter, _ *tuple.Page) ([]tuple.Tuple, *int, error) {
	var out []tuple.Tuple
	for _, t := range s.tuples {
		if filter.Matches(t.Key) {
			out = append(out, t)
		}
	}
	return out, nil, nil
}
func (s *fakeStore) Save(context.Context, string, []tuple.Tuple) error  { return nil }
func (s *fakeStore) Delete(context.Context, string, tuple.Filter) error { return nil }

func TestExpandUnionOfDirectAndComputed(t *testing.T) {
	m := &model.Model{
		TenantID: "acme",
		Types: map[tuple.ObjectType]*model.TypeDef{
			"folder": {
				Name: "folder",
				Relations: map[tuple.Relation]*model.Relation{
					"owner": {
						Name:            "owner",
						Rewrite:         model.NewThis(),
						DirectlyRelated: []model.RelationReference{model.Direct("user")},
					},
					"viewer": {
						Name:            "viewer",
						Rewrite:         model.NewUnion(model.NewThis(), model.NewComputedUserset("owner")),
						DirectlyRelated: []model.RelationReference{model.Direct("user")},
					},
				},
			},
		},
	}

	store := &fakeStore{tuples: []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
		{Key: tuple.NewKey("folder", "reports", "viewer", "user", "bob")},
	}}

	e := expand.New(store)
	n, err := e.Expand(context.Background(), m, tuple.NewKey("folder", "reports", "viewer", "", ""), nil)
	require.NoError(t, err)
	require.Equal(t, expand.Union, n.Kind)
	require.Len(t, n.Children, 2)

	leaf := n.Children[0]
	require.Equal(t, expand.Leaf, leaf.Kind)
	require.Len(t, leaf.Subjects, 1)
	require.Equal(t, "bob", leaf.Subjects[0].UserID)

	computed := n.Children[1]
	require.Equal(t, expand.Computed, computed.Kind)
	require.Equal(t, expand.Leaf, computed.Computed.Kind)
	require.Len(t, computed.Computed.Subjects, 1)
	require.Equal(t, "alice", computed.Computed.Subjects[0].UserID)
}
