package sqlkit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// binding ties one positional parameter of a compiled template back to the
// (column, parameter name) pair whose placeholder produced it.
type binding struct {
	col   AnyColumn
	param string
}

// Template is an immutable compiled SQL statement: the source text with
// every placeholder token replaced by a Postgres positional marker, plus
// the ordered list of bindings, one per placeholder occurrence.
type Template struct {
	sql      string
	bindings []binding
}

// Compile scans query for every placeholder ever issued by the columns of
// the given tables, replaces each occurrence with $1..$n in source-text
// order, and records the binding order. A placeholder that does not occur
// contributes nothing; one occurring several times binds the same value at
// each of its positions.
func Compile(query string, tables ...*Table) (*Template, error) {
	type occurrence struct {
		off   int
		tok   string
		col   AnyColumn
		param string
	}

	var occs []occurrence
	for _, t := range tables {
		for _, col := range t.Columns() {
			for param, tok := range col.issuedPlaceholders() {
				for off := 0; ; {
					i := strings.Index(query[off:], tok)
					if i < 0 {
						break
					}
					occs = append(occs, occurrence{off: off + i, tok: tok, col: col, param: param})
					off += i + len(tok)
				}
			}
		}
	}

	sort.Slice(occs, func(i, j int) bool { return occs[i].off < occs[j].off })

	// Tokens are fixed-length and unique, but distinct columns of distinct
	// tables could in principle be scanned twice if a table is passed twice.
	// Overlapping occurrences would silently corrupt the binding order, so
	// reject them outright.
	for i := 1; i < len(occs); i++ {
		if occs[i].off < occs[i-1].off+len(occs[i-1].tok) {
			return nil, &Error{
				Code:    CodePlaceholderConflict,
				Message: fmt.Sprintf("overlapping placeholders at offsets %d and %d", occs[i-1].off, occs[i].off),
				Op:      "Compile",
			}
		}
	}

	var b strings.Builder
	bindings := make([]binding, len(occs))
	last := 0
	for i, o := range occs {
		b.WriteString(query[last:o.off])
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(i + 1))
		last = o.off + len(o.tok)
		bindings[i] = binding{col: o.col, param: o.param}
	}
	b.WriteString(query[last:])

	return &Template{sql: b.String(), bindings: bindings}, nil
}

// MustCompile is Compile that panics on error, for package-level template
// declarations.
func MustCompile(query string, tables ...*Table) *Template {
	tmpl, err := Compile(query, tables...)
	if err != nil {
		panic(err)
	}
	return tmpl
}

// SQL returns the compiled statement text.
func (t *Template) SQL() string { return t.sql }

// NumParams returns the number of positional parameters.
func (t *Template) NumParams() int { return len(t.bindings) }

// Prepare creates a prepared statement for the template on the database
// pool. Executions resolve the caller's transaction scope at call time, so
// one prepared statement can serve both scoped and unscoped callers.
func (t *Template) Prepare(ctx context.Context, db *DB) (*Stmt, error) {
	st, err := db.DB.PrepareContext(ctx, t.sql)
	if err != nil {
		return nil, wrapError(err, "Prepare")
	}
	return &Stmt{db: db, tmpl: t, stmt: st}, nil
}
