package pgstore

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/fgacore/fgacore/pkg/tuple"
)

func TestBuildWhereEqualityFields(t *testing.T) {
	where, args := buildWhere("acme", tuple.Filter{
		ObjectTypeEq: "folder",
		ObjectIDEq:   "reports",
		RelationEq:   "viewer",
	})
	require.Equal(t, "tenant_id = $1 AND object_type = $2 AND object_id = $3 AND relation = $4", where)
	require.Equal(t, []any{"acme", "folder", "reports", "viewer"}, args)
}

func TestBuildWhereUserRelationNil(t *testing.T) {
	where, args := buildWhere("acme", tuple.Filter{UserTypeEq: "user", UserRelationNil: true})
	require.Equal(t, "tenant_id = $1 AND user_type = $2 AND user_relation IS NULL", where)
	require.Equal(t, []any{"acme", "user"}, args)
}

func TestBuildWhereOrBranches(t *testing.T) {
	where, args := buildWhere("acme", tuple.Filter{
		ObjectTypeEq: "folder",
		Or: []tuple.Filter{
			{UserTypeEq: "user", UserIDEq: "bob"},
			{UserTypeEq: "user", UserIDEq: "*"},
		},
	})
	require.Equal(t, "tenant_id = $1 AND object_type = $2 AND (user_type = $3 AND user_id = $4 OR user_type = $5 AND user_id = $6)", where)
	require.Equal(t, []any{"acme", "folder", "user", "bob", "user", "*"}, args)
}

func TestSQLStateFromPgError(t *testing.T) {
	err := &pgconn.PgError{Code: "42P01"}
	require.Equal(t, "42P01", sqlState(err))

	wrapped := errors.New("wrapping: " + err.Error())
	require.Empty(t, sqlState(wrapped))
}
