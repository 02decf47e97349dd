package sqlkit

import "context"

// ExecBatch executes one prepared statement once per value set, in order,
// and returns the total number of rows affected. Execution stops at the
// first error. Runs on the caller's transaction scope if one is active.
func ExecBatch(ctx context.Context, st *Stmt, sets [][]Value) (int64, error) {
	var total int64

	for _, values := range sets {
		res, err := st.Exec(ctx, values...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}

	return total, nil
}

// ExecBatchScoped is ExecBatch wrapped in a transaction scope, making the
// whole batch all-or-nothing when the caller has not already opened one.
func ExecBatchScoped(ctx context.Context, db *DB, st *Stmt, sets [][]Value) (int64, error) {
	var total int64

	err := db.RunInScope(ctx, func(ctx context.Context) error {
		var err error
		total, err = ExecBatch(ctx, st, sets)
		return err
	})

	return total, err
}
