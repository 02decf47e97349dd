package sqlkit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Migration represents a single migration to execute.
type Migration struct {
	ID          string // Unique identifier (e.g., "001", "20240115120000", or any string)
	Description string // Human-readable description
	SQL         string // SQL statements to execute
}

// MigrationResult represents the result of running migrations.
type MigrationResult struct {
	Applied   []AppliedMigration
	Skipped   []string // IDs that were already applied
	TotalTime time.Duration
}

// AppliedMigration represents a successfully applied migration.
type AppliedMigration struct {
	ID          string
	Description string
	AppliedAt   time.Time
	Duration    time.Duration
	Checksum    string
}

// MigrationStatusEntry represents the status of a single migration.
type MigrationStatusEntry struct {
	ID            string
	Description   string
	Checksum      string
	Applied       bool
	ChecksumMatch bool
}

// The bookkeeping table is declared through the column model itself.
var (
	migrations  = NewTable("_sqlkit_migrations")
	migID       = VarChar(migrations, "id", 255, "PRIMARY KEY")
	migDesc     = NullText(migrations, "description")
	migChecksum = VarChar(migrations, "checksum", 64)
	migApplied  = Timestamp(migrations, "applied_at", "DEFAULT NOW()")
	migDuration = BigInt(migrations, "duration_ms")
)

var recordMigration = MustCompile(
	"INSERT INTO "+migrations.Name()+" (id, description, checksum, duration_ms) VALUES ("+
		migID.Placeholder()+", "+migDesc.Placeholder()+", "+migChecksum.Placeholder()+", "+migDuration.Placeholder()+")",
	migrations,
)

// Migrate executes migrations in order, skipping already-applied ones.
// Each migration and its bookkeeping record are applied inside one
// transaction scope.
func (db *DB) Migrate(ctx context.Context, list []Migration) (*MigrationResult, error) {
	start := time.Now()
	result := &MigrationResult{
		Applied: make([]AppliedMigration, 0),
		Skipped: make([]string, 0),
	}

	if _, err := db.Exec(ctx, migrations.CreateSQL()); err != nil {
		return nil, &Error{
			Code:    CodeUnknown,
			Message: "failed to create migrations table",
			Op:      "Migrate",
			Cause:   err,
		}
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	for _, m := range list {
		checksum := checksumSQL(m.SQL)

		if existing, ok := applied[m.ID]; ok {
			if existing != checksum {
				return nil, &Error{
					Code:    CodeUnknown,
					Message: fmt.Sprintf("migration %s has changed (checksum mismatch: expected %s, got %s)", m.ID, existing, checksum),
					Op:      "Migrate",
				}
			}
			result.Skipped = append(result.Skipped, m.ID)
			continue
		}

		migrationStart := time.Now()
		if err := db.applyMigration(ctx, m, checksum, migrationStart); err != nil {
			return nil, err
		}
		duration := time.Since(migrationStart)

		result.Applied = append(result.Applied, AppliedMigration{
			ID:          m.ID,
			Description: m.Description,
			AppliedAt:   time.Now(),
			Duration:    duration,
			Checksum:    checksum,
		})
	}

	result.TotalTime = time.Since(start)
	return result, nil
}

// appliedMigrations returns a map of migration ID to checksum.
func (db *DB) appliedMigrations(ctx context.Context) (map[string]string, error) {
	rows, err := db.Query(ctx, "SELECT "+migrations.Selection()+" FROM "+migrations.Name())
	if err != nil {
		return nil, wrapError(err, "Migrate.GetApplied")
	}
	defer rows.Close()

	result := make(map[string]string)
	for rows.Next() {
		id, err := migID.Get(rows)
		if err != nil {
			return nil, err
		}
		checksum, err := migChecksum.Get(rows)
		if err != nil {
			return nil, err
		}
		result[id] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError(err, "Migrate.GetApplied")
	}
	return result, nil
}

// applyMigration executes a single migration within a transaction scope.
func (db *DB) applyMigration(ctx context.Context, m Migration, checksum string, startTime time.Time) error {
	return db.RunInScope(ctx, func(ctx context.Context) error {
		if _, err := db.Exec(ctx, m.SQL); err != nil {
			return &Error{
				Code:    CodeUnknown,
				Message: fmt.Sprintf("migration %s failed: %v", m.ID, err),
				Op:      "Migrate.Apply",
				Query:   truncateSQL(m.SQL, 200),
				Cause:   err,
			}
		}

		_, err := recordMigration.Exec(ctx, db,
			migID.Set(m.ID),
			migDesc.Set(m.Description),
			migChecksum.Set(checksum),
			migDuration.Set(time.Since(startTime).Milliseconds()),
		)
		if err != nil {
			return wrapError(err, "Migrate.Record")
		}
		return nil
	})
}

// MigrationStatus returns the status of all known migrations.
func (db *DB) MigrationStatus(ctx context.Context, list []Migration) ([]MigrationStatusEntry, error) {
	if _, err := db.Exec(ctx, migrations.CreateSQL()); err != nil {
		return nil, &Error{
			Code:    CodeUnknown,
			Message: "failed to create migrations table",
			Op:      "MigrationStatus",
			Cause:   err,
		}
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	var result []MigrationStatusEntry
	for _, m := range list {
		checksum := checksumSQL(m.SQL)
		entry := MigrationStatusEntry{
			ID:          m.ID,
			Description: m.Description,
			Checksum:    checksum,
		}

		if appliedChecksum, ok := applied[m.ID]; ok {
			entry.Applied = true
			entry.ChecksumMatch = appliedChecksum == checksum
		}

		result = append(result, entry)
	}

	return result, nil
}

// checksumSQL returns the hex-encoded sha256 of the migration SQL.
func checksumSQL(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// truncateSQL shortens SQL for inclusion in error messages.
func truncateSQL(sql string, max int) string {
	if len(sql) <= max {
		return sql
	}
	return sql[:max] + "..."
}
