package reverse_test

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/reverse"
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

func seedModel() *model.Model {
	return &model.Model{
		TenantID: "acme",
		Types: map[tuple.ObjectType]*model.TypeDef{
			"group": {
				Name: "group",
				Relations: map[tuple.Relation]*model.Relation{
					"member": {
						Name:            "member",
						Rewrite:         model.NewThis(),
						DirectlyRelated: []model.RelationReference{model.Direct("user")},
					},
				},
			},
			"folder": {
				Name: "folder",
				Relations: map[tuple.Relation]*model.Relation{
					"viewer": {
						Name:            "viewer",
						Rewrite:         model.NewUnion(model.NewThis()),
						DirectlyRelated: []model.RelationReference{model.Direct("user"), model.Userset("group", "member")},
					},
				},
			},
		},
	}
}

func TestListUsersResolvesUsersetReferences(t *testing.T) {
	m := seedModel()
	store := &fakeStore{tuples: []tuple.Tuple{
		{Key: tuple.NewUsersetKey("folder", "reports", "viewer", "group", "eng", "member")},
		{Key: tuple.NewKey("group", "eng", "member", "user", "bob")},
		{Key: tuple.NewKey("folder", "reports", "viewer", "user", "alice")},
	}}

	e := reverse.New(store)
	ids, err := e.ListUsers(context.Background(), m, tuple.NewKey("folder", "reports", "viewer", "", ""), "user", nil)
	require.NoError(t, err)
	sort.Strings(ids)
	require.Equal(t, []string{"alice", "bob"}, ids)
}

func TestListObjectsFindsDirectAndTransitiveGrants(t *testing.T) {
	m := seedModel()
	store := &fakeStore{tuples: []tuple.Tuple{
		{Key: tuple.NewUsersetKey("folder", "reports", "viewer", "group", "eng", "member")},
		{Key: tuple.NewKey("group", "eng", "member", "user", "bob")},
		{Key: tuple.NewKey("folder", "other", "viewer", "user", "bob")},
	}}

	e := reverse.New(store)
	subject := tuple.NewKey("", "", "", "user", "bob")
	ids, err := e.ListObjects(context.Background(), m, "folder", "viewer", subject, nil)
	require.NoError(t, err)
	sort.Strings(ids)
	require.Equal(t, []string{"other", "reports"}, ids)
}
