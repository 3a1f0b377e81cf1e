// Package ddl implements the sink's self-healing schema operations: the
// identifier sanitizer, the one-time composite type bootstrap, and the
// CREATE TABLE / ADD COLUMN statements issued in direct response to a
// missing-table or missing-column error from the Error Classifier. None of
// these functions speculate about what the schema *might* need; they are
// only ever called with the exact table or column a write just failed on.
package ddl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/goodmetrics/metricsink/internal/pgpool"
	"github.com/goodmetrics/metricsink/internal/typeconv"
	"github.com/jackc/pgx/v5/pgconn"
)

// TimeColumn is the fixed first column of every dynamic metric table.
const TimeColumn = "time"

const statisticSetTypeName = "statistic_set"

const duplicateObjectSQLState = "42710"

// CreateTable issues CREATE TABLE IF NOT EXISTS for a metric that has no
// table yet, with the time column plus every dimension and measurement
// column known from the batch that triggered it. Column order follows the
// sink's fixed contract: time, then dimensions sorted by name, then
// measurements sorted by name.
func CreateTable(ctx context.Context, exec pgpool.Execer, table string, dimensions, measurements map[string]typeconv.SQLType) error {
	cols := []string{fmt.Sprintf("%s timestamptz not null", TimeColumn)}
	for _, name := range sortedKeys(dimensions) {
		cols = append(cols, fmt.Sprintf("%s %s", CleanID(name), dimensions[name].Name()))
	}
	for _, name := range sortedKeys(measurements) {
		cols = append(cols, fmt.Sprintf("%s %s", CleanID(name), measurements[name].Name()))
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, strings.Join(cols, ", "))
	if _, err := exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	slog.InfoContext(ctx, "sink.ddl.create_table", "table", table, "columns", len(cols))
	return nil
}

// AddColumn issues ALTER TABLE ... ADD COLUMN IF NOT EXISTS for exactly one
// missing column, named by the Error Classifier's parse of the DB error.
func AddColumn(ctx context.Context, exec pgpool.Execer, table, column string, sqlType typeconv.SQLType) error {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", table, CleanID(column), sqlType.Name())
	if _, err := exec.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	slog.InfoContext(ctx, "sink.ddl.add_column", "table", table, "column", column, "type", sqlType.Name())
	return nil
}

// EnsureStatisticSetType creates the statistic_set composite type the
// first time it is needed, tolerating a concurrent creation by another
// goroutine/process (the "already exists" race is not an error).
func EnsureStatisticSetType(ctx context.Context, exec pgpool.Execer) error {
	_, err := exec.Exec(ctx, fmt.Sprintf(
		`CREATE TYPE %s AS (minimum double precision, maximum double precision, samplesum double precision, samplecount bigint)`,
		statisticSetTypeName,
	))
	if err != nil && !isDuplicateObject(err) {
		return fmt.Errorf("create type %s: %w", statisticSetTypeName, err)
	}
	return nil
}

// EnsureHistogramType exists for symmetry with EnsureStatisticSetType: a
// histogram is stored as JSONB, which needs no composite type
// registration, but the sink's bootstrap calls both unconditionally so it
// never has to know which measurement shapes a given startup will see.
func EnsureHistogramType(ctx context.Context, exec pgpool.Execer) error {
	return nil
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterCompositeTypes teaches the pool's connections how to binary
// encode/decode the statistic_set composite type by loading its OID once
// EnsureStatisticSetType has created it, then registering it on the
// connection obtained here. Must be called once at sink startup, after
// EnsureStatisticSetType.
func RegisterCompositeTypes(ctx context.Context, pool *pgpool.Pool) error {
	registerOnce.Do(func() {
		conn, err := pool.Checkout(ctx)
		if err != nil {
			registerErr = fmt.Errorf("acquire connection to register %s: %w", statisticSetTypeName, err)
			return
		}
		defer conn.Release()

		dt, err := conn.Unwrap().Conn().LoadType(ctx, statisticSetTypeName)
		if err != nil {
			registerErr = fmt.Errorf("load type %s: %w", statisticSetTypeName, err)
			return
		}
		conn.Unwrap().Conn().TypeMap().RegisterType(dt)
	})
	return registerErr
}

func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == duplicateObjectSQLState
}

func sortedKeys(m map[string]typeconv.SQLType) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
