package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/lib/pq"
)

//go:embed migrations/0001_init.sql
var initSQL string

// Migrate applies fga_tuples/fga_models to the database at dsn. It opens its
// own database/sql connection over lib/pq rather than requiring a caller to
// have already built a pgxpool.Pool, so a deployment can run migrations as a
// one-shot step before the service starts taking traffic with New/NewModelStore.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("pgstore: opening migration connection: %w", err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, initSQL); err != nil {
		return fmt.Errorf("pgstore: applying migrations: %w", err)
	}
	return nil
}
