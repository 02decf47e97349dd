package sqlkit

import "strings"

// Table is a named, ordered registry of columns. Tables are meant to be
// declared once at package level and never mutated concurrently; the only
// supported mutation after declaration is promoting a nullable column
// (see NullColumn.NonNull).
type Table struct {
	name string
	cols []AnyColumn
}

// NewTable creates a table with the given name.
func NewTable(name string) *Table {
	return &Table{name: name}
}

// Ephemeral creates an unnamed, non-persistent table used purely to label
// computed or aggregate result columns (COUNT(*), expressions, ...).
// Its columns are looked up in result sets by bare column name.
func Ephemeral() *Table {
	return &Table{}
}

// Name returns the table name. Empty for ephemeral tables.
func (t *Table) Name() string { return t.name }

// Register appends col to the table's column list and returns it.
// No duplicate-name validation is performed.
func (t *Table) Register(col AnyColumn) AnyColumn {
	t.cols = append(t.cols, col)
	return col
}

// Unregister removes col from the table's column list. Columns are matched
// by identity, not by name.
func (t *Table) Unregister(col AnyColumn) {
	for i, c := range t.cols {
		if c == col {
			t.cols = append(t.cols[:i], t.cols[i+1:]...)
			return
		}
	}
}

// replace swaps old for repl at the same list position, so projections keep
// their declaration order across a nullable-to-non-null promotion.
func (t *Table) replace(old, repl AnyColumn) {
	for i, c := range t.cols {
		if c == old {
			t.cols[i] = repl
			return
		}
	}
	t.cols = append(t.cols, repl)
}

// Columns returns the columns in registration order.
func (t *Table) Columns() []AnyColumn {
	out := make([]AnyColumn, len(t.cols))
	copy(out, t.cols)
	return out
}

// Names returns the comma-joined column names, in registration order.
func (t *Table) Names() string {
	return t.join(func(c AnyColumn) string { return c.Name() })
}

// Placeholders returns the comma-joined default placeholder tokens, in
// registration order. Combined with Names this yields an INSERT value list.
func (t *Table) Placeholders() string {
	return t.join(func(c AnyColumn) string { return c.Placeholder() })
}

// Assignments returns comma-joined "name = placeholder" pairs for an
// UPDATE SET list.
func (t *Table) Assignments() string {
	return t.join(func(c AnyColumn) string { return c.Name() + " = " + c.Placeholder() })
}

// Definitions returns the comma-joined DDL fragments of all columns.
func (t *Table) Definitions() string {
	return t.join(func(c AnyColumn) string { return c.Definition() })
}

// Selection returns a select list whose labels carry the originating table,
// e.g. `users.id AS "users.id"`. Row extraction looks columns up under these
// qualified labels, so SELECTs built from declared tables should use
// Selection rather than Names. Ephemeral tables emit bare names.
func (t *Table) Selection() string {
	if t.name == "" {
		return t.Names()
	}
	return t.join(func(c AnyColumn) string {
		return t.name + "." + c.Name() + ` AS "` + t.name + "." + c.Name() + `"`
	})
}

// CreateSQL returns a CREATE TABLE IF NOT EXISTS statement for the table.
func (t *Table) CreateSQL() string {
	return "CREATE TABLE IF NOT EXISTS " + t.name + " (" + t.Definitions() + ")"
}

func (t *Table) join(f func(AnyColumn) string) string {
	parts := make([]string, len(t.cols))
	for i, c := range t.cols {
		parts[i] = f(c)
	}
	return strings.Join(parts, ", ")
}
