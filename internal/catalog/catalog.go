// Package catalog bootstraps and maintains the fixed metric_tables
// inventory: a queryable record of which metric names the sink's
// self-healing DDL loop has already created a table for. It is not
// load-bearing for that loop — the error-driven create/add-column path in
// internal/ddl works whether or not a row exists here — it only gives
// operators a place to look.
package catalog

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/goodmetrics/metricsink/internal/pgpool"
	goose "github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/postgresql/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations/postgresql"

// Bootstrap applies the catalog's own migrations, using a plain
// database/sql connection (via pgx's stdlib driver) because goose drives
// migrations through database/sql, not pgx's native interface.
func Bootstrap(ctx context.Context, connString string) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	db, err := sql.Open("pgx", connString)
	if err != nil {
		return fmt.Errorf("open catalog migration connection: %w", err)
	}
	defer db.Close()

	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("apply catalog migrations: %w", err)
	}
	return nil
}

// Record upserts a (metric_name, table_name) observation after CreateTable
// has succeeded. Failure here never unwinds the write that triggered it;
// the caller logs and carries on.
func Record(ctx context.Context, exec pgpool.Execer, metricName, tableName string) error {
	_, err := exec.Exec(ctx, `
		INSERT INTO metric_tables (metric_name, table_name)
		VALUES ($1, $2)
		ON CONFLICT (metric_name) DO NOTHING
	`, metricName, tableName)
	if err != nil {
		return fmt.Errorf("record metric table %s: %w", metricName, err)
	}
	return nil
}
