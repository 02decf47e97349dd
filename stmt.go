package sqlkit

import (
	"context"
	"database/sql"
)

// Value is one bound value: a (column, parameter name) key plus the value
// to bind. Produce them with Column.Set / Column.SetNamed.
type Value struct {
	col   AnyColumn
	param string
	val   any
}

// Stmt is a prepared statement together with its template's binding order.
// Each execution assembles a fresh positional argument list from the
// supplied values; nothing is carried over between calls.
type Stmt struct {
	db   *DB
	tmpl *Template
	stmt *sql.Stmt
}

// Exec runs the statement with the given values and returns the driver
// result. A binding with no matching value is sent as SQL NULL.
func (s *Stmt) Exec(ctx context.Context, values ...Value) (sql.Result, error) {
	args, err := s.args(values)
	if err != nil {
		return nil, err
	}

	st := s.resolve(ctx)

	hctx, ev := s.db.beforeQuery(ctx, s.tmpl.sql)
	res, err := st.ExecContext(hctx, args...)
	s.db.afterQuery(hctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "Exec")
	}
	return res, nil
}

// Query runs the statement with the given values and returns the rows.
// The returned Rows must be consumed (or closed) before the surrounding
// transaction scope ends.
func (s *Stmt) Query(ctx context.Context, values ...Value) (*Rows, error) {
	args, err := s.args(values)
	if err != nil {
		return nil, err
	}

	st := s.resolve(ctx)

	hctx, ev := s.db.beforeQuery(ctx, s.tmpl.sql)
	rows, err := st.QueryContext(hctx, args...)
	s.db.afterQuery(hctx, ev, err)
	if err != nil {
		return nil, wrapError(err, "Query")
	}
	return newRows(rows)
}

// Close releases the prepared statement.
func (s *Stmt) Close() error {
	return s.stmt.Close()
}

// Template returns the statement's template.
func (s *Stmt) Template() *Template { return s.tmpl }

// resolve rebinds the prepared statement onto the caller's transaction
// scope, if one is active, so the execution runs on the scope's connection.
func (s *Stmt) resolve(ctx context.Context) *sql.Stmt {
	if sc := s.db.scopeFrom(ctx); sc != nil {
		return sc.tx.StmtContext(ctx, s.stmt)
	}
	return s.stmt
}

func (s *Stmt) args(values []Value) ([]any, error) {
	return s.tmpl.buildArgs(values)
}

// Exec runs the template once without preparing it, on the caller's scope.
func (t *Template) Exec(ctx context.Context, db *DB, values ...Value) (sql.Result, error) {
	args, err := t.buildArgs(values)
	if err != nil {
		return nil, err
	}
	return db.Exec(ctx, t.sql, args...)
}

// Query runs the template once without preparing it, on the caller's scope.
func (t *Template) Query(ctx context.Context, db *DB, values ...Value) (*Rows, error) {
	args, err := t.buildArgs(values)
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, t.sql, args...)
}

// buildArgs builds the positional argument list in binding order. A binding
// with no supplied value becomes SQL NULL.
func (t *Template) buildArgs(values []Value) ([]any, error) {
	type key struct {
		col   AnyColumn
		param string
	}

	supplied := make(map[key]any, len(values))
	for _, v := range values {
		supplied[key{v.col, v.param}] = v.val
	}

	args := make([]any, len(t.bindings))
	for i, b := range t.bindings {
		v, ok := supplied[key{b.col, b.param}]
		if !ok {
			args[i] = nil
			continue
		}
		enc, err := b.col.encode(v)
		if err != nil {
			return nil, err
		}
		args[i] = enc
	}
	return args, nil
}
