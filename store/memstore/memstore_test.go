package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
	"github.com/fgacore/fgacore/store/memstore"
)

func TestTupleSaveListDelete(t *testing.T) {
	s, err := memstore.NewStore()
	require.NoError(t, err)
	ctx := context.Background()

	k1 := tuple.NewKey("folder", "reports", "owner", "user", "alice")
	k2 := tuple.NewKey("folder", "reports", "viewer", "user", "bob")
	require.NoError(t, s.Save(ctx, "acme", []tuple.Tuple{{Key: k1}, {Key: k2}}))

	out, total, err := s.List(ctx, "acme", tuple.Filter{ObjectTypeEq: "folder", ObjectIDEq: "reports", RelationEq: "owner"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, *total)
	require.Equal(t, k1, out[0].Key)

	out, _, err = s.List(ctx, "acme", tuple.Filter{ObjectTypeEq: "folder", ObjectIDEq: "reports"}, nil)
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.NoError(t, s.Delete(ctx, "acme", tuple.Filter{ObjectTypeEq: "folder", ObjectIDEq: "reports", RelationEq: "owner"}))
	out, _, err = s.List(ctx, "acme", tuple.Filter{ObjectTypeEq: "folder", ObjectIDEq: "reports"}, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, k2, out[0].Key)
}

func TestTupleListIsTenantScoped(t *testing.T) {
	s, err := memstore.NewStore()
	require.NoError(t, err)
	ctx := context.Background()

	k := tuple.NewKey("folder", "reports", "owner", "user", "alice")
	require.NoError(t, s.Save(ctx, "acme", []tuple.Tuple{{Key: k}}))

	out, _, err := s.List(ctx, "other-tenant", tuple.Filter{ObjectTypeEq: "folder", ObjectIDEq: "reports"}, nil)
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestModelSaveGetLatest(t *testing.T) {
	s, err := memstore.NewStore()
	require.NoError(t, err)
	ctx := context.Background()

	m1 := &model.Model{TenantID: "acme", SchemaVersion: "1.1", Types: map[tuple.ObjectType]*model.TypeDef{}}
	id1, err := s.Save(ctx, m1)
	require.NoError(t, err)
	require.NotEmpty(t, id1)

	m2 := &model.Model{TenantID: "acme", SchemaVersion: "1.1", Types: map[tuple.ObjectType]*model.TypeDef{}}
	id2, err := s.Save(ctx, m2)
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	latestID, latest, err := s.GetLatest(ctx, "acme")
	require.NoError(t, err)
	require.Equal(t, id2, latestID)
	require.Equal(t, id2, latest.ModelID)

	fetched, err := s.Get(ctx, "acme", id1)
	require.NoError(t, err)
	require.Equal(t, id1, fetched.ModelID)

	ids, total, err := s.List(ctx, "acme", model.Page{})
	require.NoError(t, err)
	require.Equal(t, 2, *total)
	require.Equal(t, []string{id1, id2}, ids)
}

func TestModelGetLatestNotFound(t *testing.T) {
	s, err := memstore.NewStore()
	require.NoError(t, err)

	_, _, err = s.GetLatest(context.Background(), "unknown-tenant")
	require.Error(t, err)
}
