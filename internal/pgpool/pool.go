// Package pgpool wraps jackc/pgx's connection pool with the checkout
// discipline the sink needs: a bounded pool (capacity 16 by default) where
// a failed checkout is the caller's signal to drop the current batch and
// log, rather than to block waiting for a slot.
package pgpool

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the subset of *pgxpool.Pool and *pgx.Conn the DDL and COPY
// writer components need. Accepting this interface instead of a concrete
// type lets a caller pass either the whole pool (auto-acquiring a
// connection per call) or one connection already checked out via
// Pool.Checkout, so a multi-statement operation (DDL fix-up, then retry
// the COPY) can stay pinned to the same connection when that matters.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// DefaultMaxConns is the bounded connection pool capacity from the sink's
// design: one connection serves exactly one DDL statement or one COPY at a
// time, and 16 concurrent connections is enough headroom for the consumer's
// per-metric fan-out without overwhelming the target database.
const DefaultMaxConns = 16

// Config configures a Pool.
type Config struct {
	ConnString string
	MaxConns   int32
	// CheckoutTimeout bounds how long Checkout waits for a free connection
	// before giving up; zero means Checkout waits as long as its ctx allows.
	CheckoutTimeout time.Duration
}

// Pool is a thin wrapper over *pgxpool.Pool that makes the "drop the batch
// on checkout failure" policy explicit at the call site.
type Pool struct {
	pgx             *pgxpool.Pool
	checkoutTimeout time.Duration
}

// Open establishes the underlying pgx pool, applying DefaultMaxConns unless
// the caller overrides it.
func Open(ctx context.Context, cfg Config) (*Pool, error) {
	pgxCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		pgxCfg.MaxConns = cfg.MaxConns
	} else {
		pgxCfg.MaxConns = DefaultMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	return &Pool{pgx: pool, checkoutTimeout: cfg.CheckoutTimeout}, nil
}

// Raw exposes the underlying *pgxpool.Pool for components (DDL, COPY
// writer) that need direct pgx access rather than a checked-out connection.
func (p *Pool) Raw() *pgxpool.Pool { return p.pgx }

// Close releases all connections. Safe to call once, at process shutdown.
func (p *Pool) Close() { p.pgx.Close() }

// Conn is a checked-out connection; the caller must call Release exactly
// once when done with it.
type Conn struct {
	inner *pgxpool.Conn
}

// Unwrap returns the underlying pgx connection.
func (c *Conn) Unwrap() *pgxpool.Conn { return c.inner }

// Release returns the connection to the pool.
func (c *Conn) Release() { c.inner.Release() }

// Checkout acquires a connection, suspending the caller until one is free,
// ctx is done, or the configured CheckoutTimeout (if any) elapses. Per the
// sink's design, a Checkout failure (including ctx expiry) is not retried
// here — the caller drops the batch it was about to write and logs the
// error.
func (p *Pool) Checkout(ctx context.Context) (*Conn, error) {
	if p.checkoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.checkoutTimeout)
		defer cancel()
	}
	conn, err := p.pgx.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("checkout connection: %w", err)
	}
	return &Conn{inner: conn}, nil
}

// Stat reports current pool utilization, exposed for metrics.
func (p *Pool) Stat() *pgxpool.Stat { return p.pgx.Stat() }
