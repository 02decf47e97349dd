// Package hooks provides observability hooks for sqlkit.
package hooks

import (
	"context"
	"strings"
	"time"
)

// QueryEvent describes one statement execution. The root package creates an
// event around every execution and hands it to each registered hook.
type QueryEvent struct {
	Query     string
	StartTime time.Time
	Err       error
}

// QueryHook observes statement executions.
type QueryHook interface {
	// BeforeQuery is called before a query is executed. The returned context
	// is passed to the execution and to AfterQuery.
	BeforeQuery(ctx context.Context, event *QueryEvent) context.Context
	// AfterQuery is called after a query is executed, with event.Err set.
	AfterQuery(ctx context.Context, event *QueryEvent)
}

// OperationType extracts the operation type from a query.
func OperationType(query string) string {
	query = strings.TrimSpace(strings.ToUpper(query))
	switch {
	case strings.HasPrefix(query, "SELECT"):
		return "select"
	case strings.HasPrefix(query, "INSERT"):
		return "insert"
	case strings.HasPrefix(query, "UPDATE"):
		return "update"
	case strings.HasPrefix(query, "DELETE"):
		return "delete"
	case strings.HasPrefix(query, "CREATE"):
		return "create"
	case strings.HasPrefix(query, "DROP"):
		return "drop"
	case strings.HasPrefix(query, "ALTER"):
		return "alter"
	case strings.HasPrefix(query, "BEGIN"):
		return "begin"
	case strings.HasPrefix(query, "COMMIT"):
		return "commit"
	case strings.HasPrefix(query, "ROLLBACK"):
		return "rollback"
	case strings.HasPrefix(query, "SAVEPOINT"):
		return "savepoint"
	case strings.HasPrefix(query, "RELEASE"):
		return "release"
	default:
		return "other"
	}
}
