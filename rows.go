package sqlkit

import (
	"database/sql"
	"fmt"
	"strings"
)

// Rows is a forward-only, single-pass view over a result set. Next scans the
// raw driver values of one row; columns then decode themselves out of it by
// qualified label (see Table.Selection). Rows must be fully consumed or
// closed before the owning transaction scope ends.
type Rows struct {
	rows  *sql.Rows
	index map[string]int // lower-cased result label -> position
	vals  []any
	err   error
}

func newRows(rs *sql.Rows) (*Rows, error) {
	cols, err := rs.Columns()
	if err != nil {
		rs.Close()
		return nil, wrapError(err, "Query.Columns")
	}

	index := make(map[string]int, len(cols))
	for i, name := range cols {
		index[strings.ToLower(name)] = i
	}

	return &Rows{
		rows:  rs,
		index: index,
		vals:  make([]any, len(cols)),
	}, nil
}

// Next advances to the next row, returning false when the set is exhausted
// or an error occurred. Check Err after the loop.
func (r *Rows) Next() bool {
	if r.err != nil {
		return false
	}
	if !r.rows.Next() {
		return false
	}

	ptrs := make([]any, len(r.vals))
	for i := range r.vals {
		r.vals[i] = nil
		ptrs[i] = &r.vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = wrapError(err, "Rows.Scan")
		return false
	}
	return true
}

// Err returns the first error encountered during iteration.
func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return wrapError(r.rows.Err(), "Rows")
}

// Close releases the underlying result set. Safe to call more than once.
func (r *Rows) Close() error {
	return r.rows.Close()
}

// value returns the raw driver value for col in the current row.
func (r *Rows) value(col AnyColumn) (any, error) {
	key := col.resultKey()
	i, ok := r.index[key]
	if !ok {
		return nil, &Error{
			Code:    CodeColumnMissing,
			Message: fmt.Sprintf("result set has no column labeled %q", key),
			Op:      "Get",
			Table:   col.Table().Name(),
			Column:  col.Name(),
		}
	}
	return r.vals[i], nil
}
