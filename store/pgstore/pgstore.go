// Package pgstore is a PostgreSQL-backed tuple.Store and model.Store.
//
// The Store talks to one minimal Querier interface — a *pgxpool.Pool, a
// *pgx.Conn, or a *pgx.Tx all satisfy it — so a permission check can run
// inside the same transaction that just wrote the tuple it depends on and
// see it without waiting for a commit.
//
// PostgreSQL errors are wrapped with the failing operation's name (and, for
// an undefined table, a hint to run migrations) and logged; they are not
// translated into pkg/resolver's error types. The SQLSTATE is read from
// pgx's pgconn.PgError or from any error exposing a SQLState() or Code()
// method.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/fgacore/fgacore/pkg/tuple"
)

// Querier is the minimal surface pgstore needs. *pgxpool.Pool, *pgx.Conn,
// and pgx.Tx all implement it, so a Store can be handed any of the three
// without pgstore needing to know which.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgreSQL error codes this package maps to sentinel errors.
const (
	pgUndefinedTable = "42P01"
)

// Store is a tuple.Store backed by a fga_tuples table.
type Store struct {
	q      Querier
	logger *zap.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger attaches a zap logger for query diagnostics. Defaults to a
// no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a Store over q.
func New(q Querier, opts ...Option) *Store {
	s := &Store{q: q, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List implements tuple.Store.
func (s *Store) List(ctx context.Context, tenantID string, filter tuple.Filter, page *tuple.Page) ([]tuple.Tuple, *int, error) {
	where, args := buildWhere(tenantID, filter)
	query := `SELECT tenant_id, object_type, object_id, relation, user_type, user_id, user_relation, created_at
		FROM fga_tuples WHERE ` + where + ` ORDER BY created_at, object_id`

	limit := 0
	if page != nil && page.PageSize > 0 {
		limit = page.PageSize
		query += fmt.Sprintf(" LIMIT %d", limit+1)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, s.mapError("list_tuples", err)
	}
	defer rows.Close()

	var out []tuple.Tuple
	for rows.Next() {
		var t tuple.Tuple
		var userRelation *string
		if err := rows.Scan(&t.TenantID, &t.Key.ObjectType, &t.Key.ObjectID, &t.Key.Relation,
			&t.Key.UserType, &t.Key.UserID, &userRelation, &t.CreatedAt); err != nil {
			return nil, nil, s.mapError("scan_tuple", err)
		}
		if userRelation != nil {
			t.Key.UserRelation = tuple.Relation(*userRelation)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, s.mapError("list_tuples_rows", err)
	}

	if limit > 0 && len(out) > limit {
		total := len(out)
		return out[:limit], &total, nil
	}
	total := len(out)
	return out, &total, nil
}

// Save implements tuple.Store, upserting tuples in a single batched round
// trip. Duplicate tuples are silently idempotent, matching the source
// system's write semantics for relationship tuples.
func (s *Store) Save(ctx context.Context, tenantID string, tuples []tuple.Tuple) error {
	if len(tuples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tuples {
		var userRelation any
		if t.Key.UserRelation != "" {
			userRelation = string(t.Key.UserRelation)
		}
		batch.Queue(`INSERT INTO fga_tuples (tenant_id, object_type, object_id, relation, user_type, user_id, user_relation)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (tenant_id, object_type, object_id, relation, user_type, user_id, user_relation) DO NOTHING`,
			tenantID, string(t.Key.ObjectType), t.Key.ObjectID, string(t.Key.Relation),
			string(t.Key.UserType), t.Key.UserID, userRelation)
	}

	br := queryBatch(ctx, s.q, batch)
	defer br.Close()

	for range tuples {
		if _, err := br.Exec(); err != nil {
			return s.mapError("save_tuples", err)
		}
	}
	return nil
}

// Delete implements tuple.Store.
func (s *Store) Delete(ctx context.Context, tenantID string, filter tuple.Filter) error {
	where, args := buildWhere(tenantID, filter)
	_, err := s.q.Exec(ctx, `DELETE FROM fga_tuples WHERE `+where, args...)
	if err != nil {
		return s.mapError("delete_tuples", err)
	}
	return nil
}

// queryBatch abstracts over SendBatch so Store can accept a Querier that
// doesn't expose it directly; callers hand pgstore a *pgxpool.Pool,
// *pgx.Conn, or pgx.Tx, all of which implement this underneath Querier.
type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func queryBatch(ctx context.Context, q Querier, batch *pgx.Batch) pgx.BatchResults {
	if sender, ok := q.(batchSender); ok {
		return sender.SendBatch(ctx, batch)
	}
	return errBatchResults{err: errors.New("pgstore: querier does not support batched writes")}
}

type errBatchResults struct{ err error }

func (e errBatchResults) Exec() (pgconn.CommandTag, error)               { return pgconn.CommandTag{}, e.err }
func (e errBatchResults) Query() (pgx.Rows, error)                       { return nil, e.err }
func (e errBatchResults) QueryRow() pgx.Row                              { return errRow{err: e.err} }
func (e errBatchResults) QueryFunc(_ []any, _ func(pgx.QueryFuncRow) error) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, e.err
}
func (e errBatchResults) Close() error { return e.err }

type errRow struct{ err error }

func (e errRow) Scan(...any) error { return e.err }

// buildWhere renders filter into a parameterized SQL predicate starting at
// $2 (tenant_id is always $1), mirroring tuple.Filter.Matches field for
// field so a store-backed check produces identical results to the in-memory
// stores used in tests.
func buildWhere(tenantID string, f tuple.Filter) (string, []any) {
	args := []any{tenantID}
	conds := []string{"tenant_id = $1"}

	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ObjectTypeEq != "" {
		add("object_type = $%d", string(f.ObjectTypeEq))
	}
	if f.ObjectIDEq != "" {
		add("object_id = $%d", f.ObjectIDEq)
	}
	if len(f.ObjectIDIn) > 0 {
		add("object_id = ANY($%d)", f.ObjectIDIn)
	}
	if f.RelationEq != "" {
		add("relation = $%d", string(f.RelationEq))
	}
	if f.UserTypeEq != "" {
		add("user_type = $%d", string(f.UserTypeEq))
	}
	if f.UserIDEq != "" {
		add("user_id = $%d", f.UserIDEq)
	}
	if len(f.UserIDIn) > 0 {
		add("user_id = ANY($%d)", f.UserIDIn)
	}
	if f.UserRelationEq != "" {
		add("user_relation = $%d", string(f.UserRelationEq))
	}
	if f.UserRelationNil {
		conds = append(conds, "user_relation IS NULL")
	}
	if len(f.Or) > 0 {
		var branches []string
		for _, sub := range f.Or {
			subWhere, subArgs := buildWhereNoTenant(&args, sub)
			branches = append(branches, subWhere)
			_ = subArgs
		}
		conds = append(conds, "("+strings.Join(branches, " OR ")+")")
	}

	return strings.Join(conds, " AND "), args
}

// buildWhereNoTenant renders one Or-branch, appending its parameters to the
// shared args slice so placeholder numbering stays consistent across the
// whole query.
func buildWhereNoTenant(args *[]any, f tuple.Filter) (string, []any) {
	var conds []string
	add := func(cond string, val any) {
		*args = append(*args, val)
		conds = append(conds, fmt.Sprintf(cond, len(*args)))
	}

	if f.ObjectTypeEq != "" {
		add("object_type = $%d", string(f.ObjectTypeEq))
	}
	if f.ObjectIDEq != "" {
		add("object_id = $%d", f.ObjectIDEq)
	}
	if len(f.ObjectIDIn) > 0 {
		add("object_id = ANY($%d)", f.ObjectIDIn)
	}
	if f.RelationEq != "" {
		add("relation = $%d", string(f.RelationEq))
	}
	if f.UserTypeEq != "" {
		add("user_type = $%d", string(f.UserTypeEq))
	}
	if f.UserIDEq != "" {
		add("user_id = $%d", f.UserIDEq)
	}
	if len(f.UserIDIn) > 0 {
		add("user_id = ANY($%d)", f.UserIDIn)
	}
	if f.UserRelationEq != "" {
		add("user_relation = $%d", string(f.UserRelationEq))
	}
	if f.UserRelationNil {
		conds = append(conds, "user_relation IS NULL")
	}
	if len(conds) == 0 {
		return "TRUE", nil
	}
	return strings.Join(conds, " AND "), nil
}

// mapError wraps a PostgreSQL error with its operation and SQLSTATE, logging
// it at warn level via zap the way the source system logs schema-validation
// failures — loud enough to notice in production, not fatal to the request.
func (s *Store) mapError(op string, err error) error {
	code := sqlState(err)
	s.logger.Warn("pgstore query failed", zap.String("op", op), zap.String("sqlstate", code), zap.Error(err))

	if code == pgUndefinedTable {
		return fmt.Errorf("pgstore: %s: fga_tuples table not found, run migrations: %w", op, err)
	}
	return fmt.Errorf("pgstore: %s: %w", op, err)
}

// sqlState extracts the SQLSTATE code from err, checking both pgx's
// pgconn.PgError and any driver exposing a bare Code()/SQLState() method so
// the same mapping logic works regardless of which Querier was supplied.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	type sqlStateErr interface{ SQLState() string }
	var sse sqlStateErr
	if errors.As(err, &sse) {
		return sse.SQLState()
	}
	type codeErr interface{ Code() string }
	var ce codeErr
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}
