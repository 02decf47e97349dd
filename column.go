package sqlkit

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnyColumn is the type-erased view of a column. Templates, tables and row
// extraction operate on this interface; application code works with the
// typed Column and NullColumn variants returned by the constructors.
type AnyColumn interface {
	// Name returns the column name.
	Name() string
	// Table returns the owning table.
	Table() *Table
	// SQLType returns the native storage type (e.g. "bigint", "varchar(64)").
	SQLType() string
	// Modifier returns the free-text DDL modifier, if any.
	Modifier() string
	// Definition returns the DDL fragment "name type [NOT NULL] [modifier]".
	Definition() string
	// Placeholder returns the opaque token standing in for this column inside
	// template source text. The optional argument names a logical parameter;
	// omitting it selects the default (unnamed) parameter. Tokens are
	// generated on first use and memoized for the lifetime of the column.
	Placeholder(param ...string) string

	// issuedPlaceholders returns a snapshot of every token handed out so far,
	// keyed by parameter name. Compile scans template text for these.
	issuedPlaceholders() map[string]string
	// encode validates v against the column's value type and converts it to
	// a driver-compatible value. nil passes through as SQL NULL.
	encode(v any) (any, error)
	// resultKey returns the lower-cased qualified label this column is looked
	// up under in a result set ("table.column", or "column" for ephemeral
	// tables).
	resultKey() string
}

// columnCore carries the state shared by both nullability variants.
type columnCore struct {
	table    *Table
	name     string
	sqlType  string
	modifier string

	mu     sync.Mutex
	tokens map[string]string // param name -> placeholder token
}

func (c *columnCore) Name() string     { return c.name }
func (c *columnCore) Table() *Table    { return c.table }
func (c *columnCore) SQLType() string  { return c.sqlType }
func (c *columnCore) Modifier() string { return c.modifier }

func (c *columnCore) Placeholder(param ...string) string {
	name := ""
	if len(param) > 0 {
		name = param[0]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tokens == nil {
		c.tokens = make(map[string]string)
	}
	if tok, ok := c.tokens[name]; ok {
		return tok
	}

	// Fixed-length random tokens: no two tokens can collide and none can be
	// a substring of another, so offset scanning stays unambiguous.
	tok := "{" + uuid.NewString() + "}"
	c.tokens[name] = tok
	return tok
}

func (c *columnCore) issuedPlaceholders() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]string, len(c.tokens))
	for name, tok := range c.tokens {
		out[name] = tok
	}
	return out
}

func (c *columnCore) resultKey() string {
	if c.table.name == "" {
		return strings.ToLower(c.name)
	}
	return strings.ToLower(c.table.name + "." + c.name)
}

func (c *columnCore) definition(notNull bool) string {
	def := c.name + " " + c.sqlType
	if notNull {
		def += " NOT NULL"
	}
	if c.modifier != "" {
		def += " " + c.modifier
	}
	return def
}

// Column is a non-null typed column. Decoding a NULL from a Column fails
// with ErrNotNullViolation.
type Column[T any] struct {
	columnCore
	enc func(T) (any, error)
	dec func(any) (T, error)
}

// Definition returns the DDL fragment for this column, including NOT NULL.
func (c *Column[T]) Definition() string { return c.definition(true) }

// Set binds v to the column's default parameter.
func (c *Column[T]) Set(v T) Value {
	return Value{col: c, val: v}
}

// SetNamed binds v to the named parameter.
func (c *Column[T]) SetNamed(param string, v T) Value {
	return Value{col: c, param: param, val: v}
}

// Get decodes this column's value from the current row. NULL is an error
// for the non-null variant.
func (c *Column[T]) Get(r *Rows) (T, error) {
	var zero T
	v, err := r.value(c)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, &Error{
			Code:    CodeNotNullViolation,
			Message: fmt.Sprintf("null value in non-null column %s", c.resultKey()),
			Op:      "Get",
			Table:   c.table.name,
			Column:  c.name,
		}
	}
	return c.dec(v)
}

func (c *Column[T]) encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := v.(T)
	if !ok {
		return nil, typeMismatch(c, v)
	}
	return c.enc(t)
}

// NullColumn is a nullable typed column. Get reports NULL through
// sql.Null[T] instead of failing.
type NullColumn[T any] struct {
	columnCore
	enc func(T) (any, error)
	dec func(any) (T, error)
}

// Definition returns the DDL fragment for this column.
func (c *NullColumn[T]) Definition() string { return c.definition(false) }

// Set binds v to the column's default parameter.
func (c *NullColumn[T]) Set(v T) Value {
	return Value{col: c, val: v}
}

// SetNamed binds v to the named parameter.
func (c *NullColumn[T]) SetNamed(param string, v T) Value {
	return Value{col: c, param: param, val: v}
}

// SetNull binds an explicit NULL to the column's default parameter.
// Equivalent to omitting the value entirely.
func (c *NullColumn[T]) SetNull() Value {
	return Value{col: c}
}

// Get decodes this column's value from the current row.
func (c *NullColumn[T]) Get(r *Rows) (sql.Null[T], error) {
	v, err := r.value(c)
	if err != nil {
		return sql.Null[T]{}, err
	}
	if v == nil {
		return sql.Null[T]{}, nil
	}
	t, err := c.dec(v)
	if err != nil {
		return sql.Null[T]{}, err
	}
	return sql.Null[T]{V: t, Valid: true}, nil
}

func (c *NullColumn[T]) encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	t, ok := v.(T)
	if !ok {
		return nil, typeMismatch(c, v)
	}
	return c.enc(t)
}

// NonNull promotes the nullable column to its non-null variant. The original
// column is removed from the owning table and the replacement takes its
// position. Templates already compiled against the original column are
// unaffected; placeholders issued for it are simply never matched again.
func (c *NullColumn[T]) NonNull() *Column[T] {
	repl := &Column[T]{
		columnCore: columnCore{
			table:    c.table,
			name:     c.name,
			sqlType:  c.sqlType,
			modifier: c.modifier,
		},
		enc: c.enc,
		dec: c.dec,
	}
	c.table.replace(c, repl)
	return repl
}

func typeMismatch(c AnyColumn, v any) error {
	return &Error{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("cannot bind %T to column %s (%s)", v, c.Name(), c.SQLType()),
		Op:      "Bind",
		Table:   c.Table().Name(),
		Column:  c.Name(),
	}
}

func newColumn[T any](t *Table, name, sqlType string, modifier []string, enc func(T) (any, error), dec func(any) (T, error)) *Column[T] {
	c := &Column[T]{
		columnCore: columnCore{table: t, name: name, sqlType: sqlType, modifier: strings.Join(modifier, " ")},
		enc:        enc,
		dec:        dec,
	}
	t.Register(c)
	return c
}

func newNullColumn[T any](t *Table, name, sqlType string, modifier []string, enc func(T) (any, error), dec func(any) (T, error)) *NullColumn[T] {
	c := &NullColumn[T]{
		columnCore: columnCore{table: t, name: name, sqlType: sqlType, modifier: strings.Join(modifier, " ")},
		enc:        enc,
		dec:        dec,
	}
	t.Register(c)
	return c
}

// Encode/decode pairs per column kind. Decoders see the normalized values
// database/sql hands back for *any destinations (int64, float64, bool,
// []byte, string, time.Time, nil).

func encIdent[T any](v T) (any, error) { return v, nil }

func decString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	}
	return "", decodeMismatch[string](v)
}

func decInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	}
	return 0, decodeMismatch[int64](v)
}

func decFloat64(v any) (float64, error) {
	if f, ok := v.(float64); ok {
		return f, nil
	}
	return 0, decodeMismatch[float64](v)
}

func decBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, decodeMismatch[bool](v)
}

func decTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	return time.Time{}, decodeMismatch[time.Time](v)
}

func decBytes(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return nil, decodeMismatch[[]byte](v)
}

func encUUID(v uuid.UUID) (any, error) { return v.String(), nil }

func decUUID(v any) (uuid.UUID, error) {
	switch u := v.(type) {
	case string:
		id, err := uuid.Parse(u)
		if err != nil {
			return uuid.Nil, decodeMismatch[uuid.UUID](v)
		}
		return id, nil
	case []byte:
		id, err := uuid.ParseBytes(u)
		if err != nil {
			return uuid.Nil, decodeMismatch[uuid.UUID](v)
		}
		return id, nil
	case [16]byte:
		return uuid.UUID(u), nil
	}
	return uuid.Nil, decodeMismatch[uuid.UUID](v)
}

func decodeMismatch[T any](v any) error {
	var zero T
	return &Error{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("cannot decode %T into %T", v, zero),
		Op:      "Get",
	}
}

// Column constructors. Each registers the new column with the table and
// returns it, so declarations read as a block of assignments:
//
//	var (
//	    users = sqlkit.NewTable("users")
//	    id    = sqlkit.BigInt(users, "id", "PRIMARY KEY")
//	    name  = sqlkit.VarChar(users, "name", 64)
//	    bio   = sqlkit.NullText(users, "bio")
//	)

// Text declares a non-null text column.
func Text(t *Table, name string, modifier ...string) *Column[string] {
	return newColumn(t, name, "text", modifier, encIdent[string], decString)
}

// NullText declares a nullable text column.
func NullText(t *Table, name string, modifier ...string) *NullColumn[string] {
	return newNullColumn(t, name, "text", modifier, encIdent[string], decString)
}

// VarChar declares a non-null varchar(n) column.
func VarChar(t *Table, name string, n int, modifier ...string) *Column[string] {
	return newColumn(t, name, fmt.Sprintf("varchar(%d)", n), modifier, encIdent[string], decString)
}

// NullVarChar declares a nullable varchar(n) column.
func NullVarChar(t *Table, name string, n int, modifier ...string) *NullColumn[string] {
	return newNullColumn(t, name, fmt.Sprintf("varchar(%d)", n), modifier, encIdent[string], decString)
}

// Integer declares a non-null integer column.
func Integer(t *Table, name string, modifier ...string) *Column[int64] {
	return newColumn(t, name, "integer", modifier, encIdent[int64], decInt64)
}

// NullInteger declares a nullable integer column.
func NullInteger(t *Table, name string, modifier ...string) *NullColumn[int64] {
	return newNullColumn(t, name, "integer", modifier, encIdent[int64], decInt64)
}

// BigInt declares a non-null bigint column.
func BigInt(t *Table, name string, modifier ...string) *Column[int64] {
	return newColumn(t, name, "bigint", modifier, encIdent[int64], decInt64)
}

// NullBigInt declares a nullable bigint column.
func NullBigInt(t *Table, name string, modifier ...string) *NullColumn[int64] {
	return newNullColumn(t, name, "bigint", modifier, encIdent[int64], decInt64)
}

// Bool declares a non-null boolean column.
func Bool(t *Table, name string, modifier ...string) *Column[bool] {
	return newColumn(t, name, "boolean", modifier, encIdent[bool], decBool)
}

// NullBool declares a nullable boolean column.
func NullBool(t *Table, name string, modifier ...string) *NullColumn[bool] {
	return newNullColumn(t, name, "boolean", modifier, encIdent[bool], decBool)
}

// Float declares a non-null double precision column.
func Float(t *Table, name string, modifier ...string) *Column[float64] {
	return newColumn(t, name, "double precision", modifier, encIdent[float64], decFloat64)
}

// NullFloat declares a nullable double precision column.
func NullFloat(t *Table, name string, modifier ...string) *NullColumn[float64] {
	return newNullColumn(t, name, "double precision", modifier, encIdent[float64], decFloat64)
}

// Timestamp declares a non-null timestamptz column.
func Timestamp(t *Table, name string, modifier ...string) *Column[time.Time] {
	return newColumn(t, name, "timestamptz", modifier, encIdent[time.Time], decTime)
}

// NullTimestamp declares a nullable timestamptz column.
func NullTimestamp(t *Table, name string, modifier ...string) *NullColumn[time.Time] {
	return newNullColumn(t, name, "timestamptz", modifier, encIdent[time.Time], decTime)
}

// Bytes declares a non-null bytea column.
func Bytes(t *Table, name string, modifier ...string) *Column[[]byte] {
	return newColumn(t, name, "bytea", modifier, encIdent[[]byte], decBytes)
}

// NullBytes declares a nullable bytea column.
func NullBytes(t *Table, name string, modifier ...string) *NullColumn[[]byte] {
	return newNullColumn(t, name, "bytea", modifier, encIdent[[]byte], decBytes)
}

// UUID declares a non-null uuid column.
func UUID(t *Table, name string, modifier ...string) *Column[uuid.UUID] {
	return newColumn(t, name, "uuid", modifier, encUUID, decUUID)
}

// NullUUID declares a nullable uuid column.
func NullUUID(t *Table, name string, modifier ...string) *NullColumn[uuid.UUID] {
	return newNullColumn(t, name, "uuid", modifier, encUUID, decUUID)
}
