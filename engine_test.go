package fgacore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	fgacore "github.com/fgacore/fgacore"
	"github.com/fgacore/fgacore/pkg/model"
	"github.com/fgacore/fgacore/pkg/tuple"
	"github.com/fgacore/fgacore/store/memstore"
)

const tenant = "acme"

// seedModel mirrors the folder/group part of pkg/resolver's scenario: a folder
// grants viewer directly, through its owner, through group membership, or
// through a parent folder's own viewer relation.
func seedModel(tenantID, modelID string) *model.Model {
	folder := &model.TypeDef{
		Name: "folder",
		Relations: map[tuple.Relation]*model.Relation{
			"owner": {
				Name:            "owner",
				Rewrite:         model.NewThis(),
				DirectlyRelated: []model.RelationReference{model.Direct("user")},
			},
			"parent": {
				Name:            "parent",
				Rewrite:         model.NewThis(),
				DirectlyRelated: []model.RelationReference{model.Direct("folder")},
			},
			"viewer": {
				Name: "viewer",
				Rewrite: model.NewUnion(
					model.NewThis(),
					model.NewComputedUserset("owner"),
					model.NewTupleToUserset("parent", "viewer"),
				),
				DirectlyRelated: []model.RelationReference{
					model.Direct("user"),
					model.WildcardRef("user"),
					model.Userset("group", "member"),
				},
			},
		},
	}
	group := &model.TypeDef{
		Name: "group",
		Relations: map[tuple.Relation]*model.Relation{
			"member": {
				Name:            "member",
				Rewrite:         model.NewThis(),
				DirectlyRelated: []model.RelationReference{model.Direct("user"), model.Userset("group", "member")},
			},
		},
	}
	return &model.Model{
		TenantID:      tenantID,
		ModelID:       modelID,
		SchemaVersion: "1.1",
		Types: map[tuple.ObjectType]*model.TypeDef{
			"folder": folder,
			"group":  group,
		},
	}
}

func newEngine(t *testing.T) (*fgacore.Engine, *memstore.Store) {
	t.Helper()
	store, err := memstore.NewStore()
	require.NoError(t, err)

	_, err = store.Save(context.Background(), seedModel(tenant, ""))
	require.NoError(t, err)

	return fgacore.New(store, store), store
}

func TestEngineCheckResolvesLatestModel(t *testing.T) {
	engine, store := newEngine(t)
	defer engine.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
	}))

	res, err := engine.Check(ctx, fgacore.CheckRequest{
		TenantID: tenant,
		Key:      tuple.NewKey("folder", "reports", "viewer", "user", "alice"),
	})
	require.NoError(t, err)
	require.True(t, res.Allow)

	res, err = engine.Check(ctx, fgacore.CheckRequest{
		TenantID: tenant,
		Key:      tuple.NewKey("folder", "reports", "viewer", "user", "mallory"),
	})
	require.NoError(t, err)
	require.False(t, res.Allow)
}

func TestEngineCheckUsesExplicitModelID(t *testing.T) {
	store, err := memstore.NewStore()
	require.NoError(t, err)
	ctx := context.Background()

	v1ID, err := store.Save(ctx, seedModel(tenant, ""))
	require.NoError(t, err)

	// A later, empty model has no relations at all — Check against it directly
	// should fail to find the relation rather than silently falling back.
	v2, err := store.Save(ctx, &model.Model{TenantID: tenant, SchemaVersion: "2", Types: map[tuple.ObjectType]*model.TypeDef{}})
	require.NoError(t, err)

	engine := fgacore.New(store, store)
	defer engine.Close()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
	}))

	res, err := engine.Check(ctx, fgacore.CheckRequest{
		TenantID: tenant,
		ModelID:  v1ID,
		Key:      tuple.NewKey("folder", "reports", "viewer", "user", "alice"),
	})
	require.NoError(t, err)
	require.True(t, res.Allow)

	_, err = engine.Check(ctx, fgacore.CheckRequest{
		TenantID: tenant,
		ModelID:  v2,
		Key:      tuple.NewKey("folder", "reports", "viewer", "user", "alice"),
	})
	require.Error(t, err)
	require.True(t, fgacore.IsNotFoundRelation(err))
}

func TestEngineCheckAppliesCacheByDefault(t *testing.T) {
	engine, store := newEngine(t)
	defer engine.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
	}))

	req := fgacore.CheckRequest{TenantID: tenant, Key: tuple.NewKey("folder", "reports", "viewer", "user", "alice")}

	first, err := engine.Check(ctx, req)
	require.NoError(t, err)
	require.True(t, first.Allow)
	require.Greater(t, first.QueryCount, uint32(0))

	second, err := engine.Check(ctx, req)
	require.NoError(t, err)
	require.True(t, second.Allow)
	require.Equal(t, uint32(0), second.QueryCount)
}

func TestEngineWithoutCacheAlwaysQueries(t *testing.T) {
	store, err := memstore.NewStore()
	require.NoError(t, err)
	ctx := context.Background()
	_, err = store.Save(ctx, seedModel(tenant, ""))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
	}))

	engine := fgacore.New(store, store, fgacore.WithoutCache())
	defer engine.Close()

	req := fgacore.CheckRequest{TenantID: tenant, Key: tuple.NewKey("folder", "reports", "viewer", "user", "alice")}
	for i := 0; i < 2; i++ {
		res, err := engine.Check(ctx, req)
		require.NoError(t, err)
		require.True(t, res.Allow)
		require.Greater(t, res.QueryCount, uint32(0))
	}
}

func TestEngineExpandBuildsTree(t *testing.T) {
	engine, store := newEngine(t)
	defer engine.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "viewer", "user", "bob")},
	}))

	node, err := engine.Expand(ctx, tenant, "", tuple.NewKey("folder", "reports", "viewer", "", ""), nil)
	require.NoError(t, err)
	require.Len(t, node.Children, 3) // This, owner, parent#viewer
	require.Equal(t, []tuple.Key{tuple.NewKey("folder", "reports", "viewer", "user", "bob")}, node.Children[0].Subjects)
}

func TestEngineListObjectsAndListUsers(t *testing.T) {
	engine, store := newEngine(t)
	defer engine.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewUsersetKey("folder", "reports", "viewer", "group", "eng", "member")},
		{Key: tuple.NewKey("group", "eng", "member", "user", "bob")},
		{Key: tuple.NewKey("folder", "other", "owner", "user", "carol")},
	}))

	objects, err := engine.ListObjects(ctx, tenant, "", "folder", "viewer", tuple.NewKey("", "", "", "user", "bob"), nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"reports"}, objects)

	users, err := engine.ListUsers(ctx, tenant, "", tuple.NewKey("folder", "reports", "viewer", "", ""), "user", nil)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"bob"}, users)
}

func TestEngineInvalidateModelDropsCachedDecision(t *testing.T) {
	engine, store := newEngine(t)
	defer engine.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, tenant, []tuple.Tuple{
		{Key: tuple.NewKey("folder", "reports", "owner", "user", "alice")},
	}))

	modelID, _, err := store.GetLatest(ctx, tenant)
	require.NoError(t, err)

	req := fgacore.CheckRequest{TenantID: tenant, Key: tuple.NewKey("folder", "reports", "viewer", "user", "alice")}
	first, err := engine.Check(ctx, req)
	require.NoError(t, err)
	require.Greater(t, first.QueryCount, uint32(0))

	engine.InvalidateModel(tenant, modelID)

	again, err := engine.Check(ctx, req)
	require.NoError(t, err)
	require.Greater(t, again.QueryCount, uint32(0))
}
