package pg

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openlibops/stacks/internal/observability/tracing"
)

// Pool exposes the subset of pgxpool behaviour required by the stores.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PoolConfig describes connection pool tuning knobs exposed via configuration.
type PoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// Option configures pgx connections.
type Option func(*pgxpool.Config)

// DB wraps the primary pool with query tracing.
type DB struct {
	Pool   Pool
	Tracer tracing.Tracer
}

// Connect initialises a pgx pool with optional configuration overrides.
func Connect(ctx context.Context, url string, opts ...Option) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool, Tracer: tracing.NoopTracer{}}, nil
}

// Close releases the underlying pool.
func (db *DB) Close() {
	if db == nil || db.Pool == nil {
		return
	}
	db.Pool.Close()
}

// UseTracer attaches a tracer to the database handle.
func (db *DB) UseTracer(tracer tracing.Tracer) {
	if db == nil {
		return
	}
	db.Tracer = tracing.OrNoop(tracer)
}

func (db *DB) tracer() tracing.Tracer {
	return tracing.OrNoop(db.Tracer)
}

func queryAttrs(table, sql string) []tracing.Attribute {
	return []tracing.Attribute{
		tracing.String("db.system", "postgresql"),
		tracing.String("db.sql.table", table),
		tracing.String("db.statement", sql),
	}
}

// Query runs a read statement with a span covering execution.
func (db *DB) Query(ctx context.Context, table, sql string, args ...any) (pgx.Rows, error) {
	ctx, span := db.tracer().Start(ctx, "pg.query", queryAttrs(table, sql)...)
	rows, err := db.Pool.Query(ctx, sql, args...)
	span.End(err)
	return rows, err
}

// QueryRow runs a single-row read. The span ends when the row is scanned,
// since pgx defers errors to Scan.
func (db *DB) QueryRow(ctx context.Context, table, sql string, args ...any) pgx.Row {
	ctx, span := db.tracer().Start(ctx, "pg.query_row", queryAttrs(table, sql)...)
	return &tracedRow{row: db.Pool.QueryRow(ctx, sql, args...), span: span}
}

// Exec runs a mutation statement with a span covering execution.
func (db *DB) Exec(ctx context.Context, table, sql string, args ...any) (pgconn.CommandTag, error) {
	ctx, span := db.tracer().Start(ctx, "pg.exec", queryAttrs(table, sql)...)
	tag, err := db.Pool.Exec(ctx, sql, args...)
	span.End(err)
	return tag, err
}

// Select issues a SELECT generated from a spec.
func (db *DB) Select(ctx context.Context, spec SelectSpec) (pgx.Rows, error) {
	sql, args := BuildSelectSQL(spec)
	return db.Query(ctx, spec.Table, sql, args...)
}

// Aggregate issues an aggregate query generated from a spec.
func (db *DB) Aggregate(ctx context.Context, spec AggregateSpec) pgx.Row {
	sql, args := BuildAggregateSQL(spec)
	return db.QueryRow(ctx, spec.Table, sql, args...)
}

// AggregateRows issues a grouped aggregate, returning one row per group.
func (db *DB) AggregateRows(ctx context.Context, spec AggregateSpec) (pgx.Rows, error) {
	sql, args := BuildAggregateSQL(spec)
	return db.Query(ctx, spec.Table, sql, args...)
}

type tracedRow struct {
	row  pgx.Row
	span tracing.Span
	once sync.Once
}

func (r *tracedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	r.once.Do(func() { r.span.End(err) })
	return err
}

func applyDefaults(cfg *pgxpool.Config) {
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour
}

// WithMaxConns sets the maximum pool size.
func WithMaxConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MaxConns = n }
}

// WithMinConns sets the minimum pool size.
func WithMinConns(n int32) Option {
	return func(cfg *pgxpool.Config) { cfg.MinConns = n }
}

// WithPoolConfig applies a group of pool settings derived from configuration.
func WithPoolConfig(pc PoolConfig) Option {
	return func(cfg *pgxpool.Config) {
		if pc.MaxConns > 0 {
			cfg.MaxConns = pc.MaxConns
		}
		if pc.MinConns > 0 {
			cfg.MinConns = pc.MinConns
		}
		if pc.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pc.MaxConnLifetime
		}
		if pc.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pc.MaxConnIdleTime
		}
		if pc.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pc.HealthCheckPeriod
		}
	}
}
