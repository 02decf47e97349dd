package sqlkit

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun/driver/pgdriver"
)

// ErrorCode represents a database error classification.
type ErrorCode string

const (
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeDuplicate        ErrorCode = "DUPLICATE"
	CodeForeignKey       ErrorCode = "FOREIGN_KEY"
	CodeCheckViolation   ErrorCode = "CHECK_VIOLATION"
	CodeNotNullViolation ErrorCode = "NOT_NULL"
	CodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	CodeTimeout          ErrorCode = "TIMEOUT"
	CodeSerialization    ErrorCode = "SERIALIZATION"
	CodeDeadlock         ErrorCode = "DEADLOCK"
	CodeUnknown          ErrorCode = "UNKNOWN"

	// Codes raised by this layer itself rather than the server.
	CodeNoScope             ErrorCode = "NO_SCOPE"
	CodeColumnMissing       ErrorCode = "COLUMN_MISSING"
	CodeTypeMismatch        ErrorCode = "TYPE_MISMATCH"
	CodePlaceholderConflict ErrorCode = "PLACEHOLDER_CONFLICT"
)

// Sentinel errors for quick checks.
var (
	ErrNotFound         = errors.New("sqlkit: record not found")
	ErrDuplicate        = errors.New("sqlkit: duplicate key violation")
	ErrForeignKey       = errors.New("sqlkit: foreign key violation")
	ErrCheckViolation   = errors.New("sqlkit: check constraint violation")
	ErrNotNullViolation = errors.New("sqlkit: not null violation")
	ErrConnection       = errors.New("sqlkit: connection failed")
	ErrTimeout          = errors.New("sqlkit: operation timeout")
	ErrSerialization    = errors.New("sqlkit: serialization failure")
	ErrDeadlock         = errors.New("sqlkit: deadlock detected")

	ErrNoScope             = errors.New("sqlkit: no transaction scope active")
	ErrColumnMissing       = errors.New("sqlkit: column not present in result set")
	ErrTypeMismatch        = errors.New("sqlkit: value type does not match column type")
	ErrPlaceholderConflict = errors.New("sqlkit: overlapping placeholders in template")
)

// Error is a rich database error with context.
type Error struct {
	Code       ErrorCode // Error classification
	Message    string    // Human-readable message
	Op         string    // Operation that failed (e.g., "Compile", "Exec")
	Table      string    // Table name if known
	Column     string    // Column name if known
	Constraint string    // Constraint name if applicable
	Detail     string    // Additional detail from PostgreSQL
	Hint       string    // Hint from PostgreSQL
	Query      string    // Query that failed (may be empty for security)
	Cause      error     // Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("sqlkit: %s", e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("sqlkit.%s: %s", e.Op, e.Message)
	}
	if e.Table != "" {
		msg += fmt.Sprintf(" (table: %s)", e.Table)
	}
	if e.Constraint != "" {
		msg += fmt.Sprintf(" (constraint: %s)", e.Constraint)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for sentinel error matching.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case CodeNotFound:
		return target == ErrNotFound
	case CodeDuplicate:
		return target == ErrDuplicate
	case CodeForeignKey:
		return target == ErrForeignKey
	case CodeCheckViolation:
		return target == ErrCheckViolation
	case CodeNotNullViolation:
		return target == ErrNotNullViolation
	case CodeConnectionFailed:
		return target == ErrConnection
	case CodeTimeout:
		return target == ErrTimeout
	case CodeSerialization:
		return target == ErrSerialization
	case CodeDeadlock:
		return target == ErrDeadlock
	case CodeNoScope:
		return target == ErrNoScope
	case CodeColumnMissing:
		return target == ErrColumnMissing
	case CodeTypeMismatch:
		return target == ErrTypeMismatch
	case CodePlaceholderConflict:
		return target == ErrPlaceholderConflict
	}
	return false
}

// wrapError converts a raw error to a rich Error.
func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	// Already wrapped
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return err
	}

	// Check for "no rows" error
	if err.Error() == "sql: no rows in result set" {
		return &Error{
			Code:    CodeNotFound,
			Message: "record not found",
			Op:      op,
			Cause:   err,
		}
	}

	// PostgreSQL wire errors, from either driver stack
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifySQLState(pgErr.Code, pgErr.Message, op, err, pgErr)
	}
	var drvErr pgdriver.Error
	if errors.As(err, &drvErr) {
		return classifySQLState(drvErr.Field('C'), drvErr.Field('M'), op, err, nil)
	}

	// Generic wrapping
	return &Error{
		Code:    CodeUnknown,
		Message: err.Error(),
		Op:      op,
		Cause:   err,
	}
}

// classifySQLState maps a PostgreSQL SQLSTATE to an ErrorCode.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
func classifySQLState(state, message, op string, cause error, pgErr *pgconn.PgError) *Error {
	e := &Error{
		Op:    op,
		Cause: cause,
	}
	if pgErr != nil {
		e.Table = pgErr.TableName
		e.Column = pgErr.ColumnName
		e.Constraint = pgErr.ConstraintName
		e.Detail = pgErr.Detail
		e.Hint = pgErr.Hint
	}

	switch state {
	case "23505": // unique_violation
		e.Code = CodeDuplicate
		e.Message = "duplicate key value violates unique constraint"
	case "23503": // foreign_key_violation
		e.Code = CodeForeignKey
		e.Message = "foreign key constraint violation"
	case "23502": // not_null_violation
		e.Code = CodeNotNullViolation
		e.Message = "null value in column violates not-null constraint"
	case "23514": // check_violation
		e.Code = CodeCheckViolation
		e.Message = "check constraint violation"
	case "40001": // serialization_failure
		e.Code = CodeSerialization
		e.Message = "serialization failure, retry transaction"
	case "40P01": // deadlock_detected
		e.Code = CodeDeadlock
		e.Message = "deadlock detected"
	case "57014": // query_canceled (timeout)
		e.Code = CodeTimeout
		e.Message = "query was cancelled due to timeout"
	case "08000", "08003", "08006": // connection errors
		e.Code = CodeConnectionFailed
		e.Message = "database connection failed"
	default:
		e.Code = CodeUnknown
		e.Message = message
	}

	return e
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicate checks if error is a duplicate key error.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsForeignKey checks if error is a foreign key error.
func IsForeignKey(err error) bool {
	return errors.Is(err, ErrForeignKey)
}

// IsCheckViolation checks if error is a check constraint error.
func IsCheckViolation(err error) bool {
	return errors.Is(err, ErrCheckViolation)
}

// IsNotNullViolation checks if error is a not null violation, raised either
// by the server or by decoding NULL from a non-null column.
func IsNotNullViolation(err error) bool {
	return errors.Is(err, ErrNotNullViolation)
}

// IsConnection checks if error is a connection error.
func IsConnection(err error) bool {
	return errors.Is(err, ErrConnection)
}

// IsTimeout checks if error is a timeout error.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsRetryable checks if the error is retryable (serialization, deadlock).
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSerialization) || errors.Is(err, ErrDeadlock)
}

// IsNoScope checks if error is a missing-transaction-scope error.
func IsNoScope(err error) bool {
	return errors.Is(err, ErrNoScope)
}

// IsColumnMissing checks if error is a result-set lookup error.
func IsColumnMissing(err error) bool {
	return errors.Is(err, ErrColumnMissing)
}

// IsTypeMismatch checks if error is a bind/decode type error.
func IsTypeMismatch(err error) bool {
	return errors.Is(err, ErrTypeMismatch)
}

// GetErrorCode extracts the error code if it's a sqlkit error.
func GetErrorCode(err error) (ErrorCode, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) {
		return dbErr.Code, true
	}
	return "", false
}

// GetConstraint extracts the constraint name if available.
func GetConstraint(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Constraint != "" {
		return dbErr.Constraint, true
	}
	return "", false
}

// GetTable extracts the table name if available.
func GetTable(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Table != "" {
		return dbErr.Table, true
	}
	return "", false
}

// GetColumn extracts the column name if available.
func GetColumn(err error) (string, bool) {
	var dbErr *Error
	if errors.As(err, &dbErr) && dbErr.Column != "" {
		return dbErr.Column, true
	}
	return "", false
}
