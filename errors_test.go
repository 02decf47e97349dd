package sqlkit

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestWrapError_Nil(t *testing.T) {
	if wrapError(nil, "Op") != nil {
		t.Error("Expected nil for nil error")
	}
}

func TestWrapError_NoRows(t *testing.T) {
	err := wrapError(errors.New("sql: no rows in result set"), "FindUser")
	if !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}

	var dbErr *Error
	if !errors.As(err, &dbErr) {
		t.Fatal("Expected *Error")
	}
	if dbErr.Op != "FindUser" {
		t.Errorf("Expected Op FindUser, got %s", dbErr.Op)
	}
}

func TestWrapError_AlreadyWrapped(t *testing.T) {
	orig := &Error{Code: CodeNoScope, Message: "no scope", Op: "RequireScope"}
	if got := wrapError(orig, "Other"); got != error(orig) {
		t.Error("Expected already-wrapped error to pass through unchanged")
	}
}

func TestWrapError_PgError(t *testing.T) {
	cases := []struct {
		state string
		check func(error) bool
		code  ErrorCode
	}{
		{"23505", IsDuplicate, CodeDuplicate},
		{"23503", IsForeignKey, CodeForeignKey},
		{"23502", IsNotNullViolation, CodeNotNullViolation},
		{"23514", IsCheckViolation, CodeCheckViolation},
		{"40001", IsRetryable, CodeSerialization},
		{"40P01", IsRetryable, CodeDeadlock},
		{"57014", IsTimeout, CodeTimeout},
		{"08006", IsConnection, CodeConnectionFailed},
	}

	for _, tc := range cases {
		pgErr := &pgconn.PgError{
			Code:           tc.state,
			Message:        "server says no",
			TableName:      "users",
			ConstraintName: "users_email_key",
		}

		err := wrapError(pgErr, "Exec")
		if !tc.check(err) {
			t.Errorf("SQLSTATE %s: classification check failed: %v", tc.state, err)
		}

		code, ok := GetErrorCode(err)
		if !ok || code != tc.code {
			t.Errorf("SQLSTATE %s: expected code %s, got %s", tc.state, tc.code, code)
		}
	}
}

func TestWrapError_PgErrorDetail(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		TableName:      "users",
		ColumnName:     "email",
		ConstraintName: "users_email_key",
		Detail:         "Key (email)=(a@b.c) already exists.",
	}

	err := wrapError(pgErr, "Exec")

	if table, ok := GetTable(err); !ok || table != "users" {
		t.Errorf("Expected table users, got %q", table)
	}
	if col, ok := GetColumn(err); !ok || col != "email" {
		t.Errorf("Expected column email, got %q", col)
	}
	if constraint, ok := GetConstraint(err); !ok || constraint != "users_email_key" {
		t.Errorf("Expected constraint, got %q", constraint)
	}
}

func TestWrapError_Unknown(t *testing.T) {
	err := wrapError(errors.New("something odd"), "Exec")

	code, ok := GetErrorCode(err)
	if !ok || code != CodeUnknown {
		t.Errorf("Expected UNKNOWN, got %s", code)
	}
	if !errors.Is(err, err) {
		t.Error("Expected error to match itself")
	}
}

func TestError_SentinelMatching(t *testing.T) {
	cases := []struct {
		code     ErrorCode
		sentinel error
	}{
		{CodeNoScope, ErrNoScope},
		{CodeColumnMissing, ErrColumnMissing},
		{CodeTypeMismatch, ErrTypeMismatch},
		{CodePlaceholderConflict, ErrPlaceholderConflict},
		{CodeNotNullViolation, ErrNotNullViolation},
	}

	for _, tc := range cases {
		err := &Error{Code: tc.code, Message: "x"}
		if !errors.Is(err, tc.sentinel) {
			t.Errorf("Expected code %s to match its sentinel", tc.code)
		}
		if errors.Is(err, ErrNotFound) && tc.code != CodeNotFound {
			t.Errorf("Expected code %s not to match ErrNotFound", tc.code)
		}
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Code:       CodeDuplicate,
		Message:    "duplicate key",
		Op:         "Exec",
		Table:      "users",
		Constraint: "users_email_key",
	}

	want := "sqlkit.Exec: duplicate key (table: users) (constraint: users_email_key)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{Code: CodeUnknown, Message: "wrapped", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected unwrap to reach the cause")
	}
}
