package sqlkit

import (
	"context"
	"database/sql"
	"fmt"
)

// DBTX is the executor interface satisfied by both *sql.DB and *sql.Tx.
// Operations that should run inside an active scope when one exists and on
// the pool otherwise can depend on this instead of a concrete type.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// TxOptions configures transaction behavior for the outermost scope entry.
type TxOptions struct {
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

// DefaultTxOptions returns default transaction options.
func DefaultTxOptions() TxOptions {
	return TxOptions{Isolation: sql.LevelDefault}
}

// ReadOnlyTxOptions returns options for read-only transactions.
func ReadOnlyTxOptions() TxOptions {
	return TxOptions{Isolation: sql.LevelDefault, ReadOnly: true}
}

// SerializableTxOptions returns options for serializable transactions.
func SerializableTxOptions() TxOptions {
	return TxOptions{Isolation: sql.LevelSerializable}
}

// ScopeFunc is the body of a transaction scope. The context it receives
// carries the scope's connection and must be passed down to every operation
// that should run inside it.
type ScopeFunc func(ctx context.Context) error

// scopeKey identifies a scope cell in the context by pool identity, so
// scopes against different DBs nest independently.
type scopeKey struct{ db *DB }

type scope struct {
	tx *sql.Tx
}

func (db *DB) scopeFrom(ctx context.Context) *scope {
	sc, _ := ctx.Value(scopeKey{db}).(*scope)
	return sc
}

// executor returns the active scope's transaction, or the pool when no
// scope is bound.
func (db *DB) executor(ctx context.Context) DBTX {
	if sc := db.scopeFrom(ctx); sc != nil {
		return sc.tx
	}
	return db.DB
}

// RunInScope executes fn inside a transaction scope. The outermost call
// begins a transaction, commits on success and rolls back on error or
// panic; a nested call for the same DB just runs fn on the existing scope
// and leaves the commit/rollback decision to the outermost one.
func (db *DB) RunInScope(ctx context.Context, fn ScopeFunc) error {
	return db.RunInScopeOptions(ctx, DefaultTxOptions(), fn)
}

// RunInScopeOptions is RunInScope with explicit transaction options.
// Options are only honored by the outermost entry; nested entries run on
// the already-open transaction regardless of the options passed.
func (db *DB) RunInScopeOptions(ctx context.Context, opts TxOptions, fn ScopeFunc) error {
	if db.scopeFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := db.DB.BeginTx(ctx, &sql.TxOptions{
		Isolation: opts.Isolation,
		ReadOnly:  opts.ReadOnly,
	})
	if err != nil {
		return wrapError(err, "RunInScope.Begin")
	}

	sctx := context.WithValue(ctx, scopeKey{db}, &scope{tx: tx})

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(sctx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("sqlkit: rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapError(err, "RunInScope.Commit")
	}
	return nil
}

// RequireScope executes fn on an already-established scope. It fails with
// ErrNoScope when the context carries no scope for this DB, acquiring
// nothing. Use it to force callers to have set the transaction boundary.
func (db *DB) RequireScope(ctx context.Context, fn ScopeFunc) error {
	if db.scopeFrom(ctx) == nil {
		return &Error{
			Code:    CodeNoScope,
			Message: "no transaction scope active for this database",
			Op:      "RequireScope",
		}
	}
	return fn(ctx)
}

// InScope reports whether the context carries an active transaction scope
// for this DB. Observation only, no side effects.
func (db *DB) InScope(ctx context.Context) bool {
	return db.scopeFrom(ctx) != nil
}
