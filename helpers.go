package sqlkit

// Template builders composed from table projections. They cover the common
// statement shapes; anything else is written as raw SQL with embedded
// placeholders and handed to Compile directly.

// Insert compiles an INSERT over all columns of t, in declaration order.
func Insert(t *Table) (*Template, error) {
	return Compile(
		"INSERT INTO "+t.Name()+" ("+t.Names()+") VALUES ("+t.Placeholders()+")",
		t,
	)
}

// InsertReturning compiles an INSERT over all columns of t that returns the
// inserted row under qualified labels, for extracting server-generated
// values.
func InsertReturning(t *Table) (*Template, error) {
	return Compile(
		"INSERT INTO "+t.Name()+" ("+t.Names()+") VALUES ("+t.Placeholders()+
			") RETURNING "+returningList(t),
		t,
	)
}

// Select compiles a SELECT of all columns of t under qualified labels.
func Select(t *Table) (*Template, error) {
	return Compile("SELECT "+t.Selection()+" FROM "+t.Name(), t)
}

// SelectBy compiles a SELECT of all columns of t filtered by equality on
// key. Bind the filter value with key.Set.
func SelectBy(t *Table, key AnyColumn) (*Template, error) {
	return Compile(
		"SELECT "+t.Selection()+" FROM "+t.Name()+
			" WHERE "+t.Name()+"."+key.Name()+" = "+key.Placeholder(),
		t,
	)
}

// UpdateBy compiles an UPDATE of all columns of t filtered by equality on
// key. The SET list binds every column's default parameter; the WHERE
// clause binds key's "key" parameter, so bind the filter value with
// key.SetNamed("key", v) alongside the new column values.
func UpdateBy(t *Table, key AnyColumn) (*Template, error) {
	return Compile(
		"UPDATE "+t.Name()+" SET "+t.Assignments()+
			" WHERE "+key.Name()+" = "+key.Placeholder("key"),
		t,
	)
}

// DeleteBy compiles a DELETE from t filtered by equality on key.
func DeleteBy(t *Table, key AnyColumn) (*Template, error) {
	return Compile(
		"DELETE FROM "+t.Name()+" WHERE "+key.Name()+" = "+key.Placeholder(),
		t,
	)
}

// returningList builds a RETURNING list with the same qualified labels as
// Table.Selection, without the table prefix on the source column (RETURNING
// refers to the inserted row, not a range table).
func returningList(t *Table) string {
	return t.join(func(c AnyColumn) string {
		return c.Name() + ` AS "` + t.Name() + "." + c.Name() + `"`
	})
}
