package sqlkit

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/fernandezvara/sqlkit/hooks"
)

// DB wraps a database/sql pool with the typed statement layer and the
// transaction scope manager.
type DB struct {
	*sql.DB
	config Config
	hooks  []hooks.QueryHook
}

// New opens a PostgreSQL connection pool with the given configuration and
// verifies it with a ping.
func New(cfg Config) (*DB, error) {
	cfg.applyDefaults()

	if cfg.URL == "" {
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "database URL is required",
			Op:      "New",
		}
	}

	connector := pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.URL),
		pgdriver.WithDialTimeout(cfg.DialTimeout),
		pgdriver.WithReadTimeout(cfg.ReadTimeout),
		pgdriver.WithWriteTimeout(cfg.WriteTimeout),
	)

	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	db, err := NewWithDB(sqlDB, cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, &Error{
			Code:    CodeConnectionFailed,
			Message: "failed to connect to database",
			Op:      "New",
			Cause:   err,
		}
	}

	return db, nil
}

// NewWithDB wraps an existing pool. Use it to bring your own driver or to
// test against a mock; pool sizing is left to the caller and the connection
// is not pinged.
func NewWithDB(sqlDB *sql.DB, cfg Config) (*DB, error) {
	cfg.applyDefaults()

	db := &DB{DB: sqlDB, config: cfg}

	if cfg.Logger != nil && (cfg.LogQueries || cfg.LogSlowQueries > 0) {
		db.hooks = append(db.hooks, hooks.NewLoggerHook(cfg.Logger, cfg.LogQueries, cfg.LogSlowQueries))
	}
	if cfg.MetricsRegistry != nil {
		hook, err := hooks.NewMetricsHook(cfg.MetricsRegistry)
		if err != nil {
			return nil, &Error{
				Code:    CodeUnknown,
				Message: "failed to create metrics hook",
				Op:      "New",
				Cause:   err,
			}
		}
		db.hooks = append(db.hooks, hook)
	}
	if cfg.Tracer != nil {
		db.hooks = append(db.hooks, hooks.NewTracingHook(cfg.Tracer))
	}

	return db, nil
}

// Close closes the pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

// Ping verifies the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.PingContext(ctx); err != nil {
		return wrapError(err, "Ping")
	}
	return nil
}

// Config returns the current configuration.
func (db *DB) Config() Config {
	return db.config
}

// AddHook appends a query hook. Not safe to call concurrently with query
// execution; register hooks before handing the DB out.
func (db *DB) AddHook(h hooks.QueryHook) {
	db.hooks = append(db.hooks, h)
}

// Exec runs a raw statement on the caller's scope, or on the pool when no
// scope is active.
func (db *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	hctx, ev := db.beforeQuery(ctx, query)
	res, err := db.executor(ctx).ExecContext(hctx, query, args...)
	db.afterQuery(hctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "Exec")
	}
	return res, nil
}

// Query runs a raw query on the caller's scope and wraps the result for
// typed extraction.
func (db *DB) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	hctx, ev := db.beforeQuery(ctx, query)
	rows, err := db.executor(ctx).QueryContext(hctx, query, args...)
	db.afterQuery(hctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "Query")
	}
	return newRows(rows)
}

func (db *DB) beforeQuery(ctx context.Context, query string) (context.Context, *hooks.QueryEvent) {
	if len(db.hooks) == 0 {
		return ctx, nil
	}
	ev := &hooks.QueryEvent{Query: query, StartTime: time.Now()}
	for _, h := range db.hooks {
		ctx = h.BeforeQuery(ctx, ev)
	}
	return ctx, ev
}

func (db *DB) afterQuery(ctx context.Context, ev *hooks.QueryEvent, err error) {
	if ev == nil {
		return
	}
	ev.Err = err
	for _, h := range db.hooks {
		h.AfterQuery(ctx, ev)
	}
}
