/*
Package sqlkit is a thin, compile-time-typed templating layer over
database/sql for PostgreSQL.

Tables are declared once as typed column collections; raw SQL with embedded
placeholder tokens is compiled into positional-parameter statements; values
are bound and extracted through the same column declarations; and work runs
inside nested transaction scopes that share one connection and one
commit/rollback decision.

# Declaring tables

	var (
	    users = sqlkit.NewTable("users")
	    id    = sqlkit.BigInt(users, "id", "PRIMARY KEY")
	    name  = sqlkit.VarChar(users, "name", 64)
	    bio   = sqlkit.NullText(users, "bio")
	)

Columns come in non-null and nullable variants. A nullable column can be
promoted later:

	required := bio.NonNull() // replaces bio in the table

# Templates

Raw SQL embeds placeholder tokens; Compile turns them into $1..$n in source
order and records which column each position binds:

	tmpl, err := sqlkit.Compile(
	    "INSERT INTO users (id, name) VALUES ("+id.Placeholder()+", "+name.Placeholder()+")",
	    users,
	)

or use the builders for the common shapes:

	tmpl, err := sqlkit.Insert(users)
	tmpl, err := sqlkit.SelectBy(users, id)

# Executing

	st, err := tmpl.Prepare(ctx, db)
	defer st.Close()

	_, err = st.Exec(ctx, id.Set(1), name.Set("A"))

	sel, err := sqlkit.SelectBy(users, id)
	rows, err := sel.Query(ctx, db, id.Set(1))
	defer rows.Close()
	for rows.Next() {
	    n, err := name.Get(rows)
	    ...
	}

# Transaction scopes

Scopes propagate through the context. Nested scopes against the same DB
share the outer scope's transaction; only the outermost entry commits or
rolls back:

	err := db.RunInScope(ctx, func(ctx context.Context) error {
	    if _, err := st.Exec(ctx, id.Set(1), name.Set("A")); err != nil {
	        return err // rollback
	    }
	    return db.RunInScope(ctx, func(ctx context.Context) error {
	        // same transaction as the outer scope
	        return nil
	    })
	})

RequireScope asserts a scope is already active instead of opening one:

	err := db.RequireScope(ctx, func(ctx context.Context) error { ... })

# Errors

Errors carry a classification code and PostgreSQL detail:

	if err := ...; err != nil {
	    if sqlkit.IsDuplicate(err) {
	        // handle duplicate key
	    }

	    var dbErr *sqlkit.Error
	    if errors.As(err, &dbErr) {
	        fmt.Println(dbErr.Code)       // DUPLICATE
	        fmt.Println(dbErr.Constraint) // users_email_key
	    }
	}

# Observability

Logging, metrics and tracing hook into every execution through the
configuration:

	cfg := sqlkit.DefaultConfig(os.Getenv("DATABASE_URL"))
	cfg.Logger = slog.Default()
	cfg.LogSlowQueries = 100 * time.Millisecond
	cfg = cfg.WithMetrics(prometheus.DefaultRegisterer)

	db, err := sqlkit.New(cfg)
*/
package sqlkit
