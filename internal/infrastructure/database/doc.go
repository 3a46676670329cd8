// Package database provides SQLite storage for the tbattrs render manifest.
//
// The manifest records each rendering run (scenario, environment, seed) and
// every entity resolved during it, so that a later run can be compared with
// an earlier one or replayed against ThingsBoard.
//
// This package manages:
//   - Connection setup with optional WAL mode and a busy timeout
//   - Versioned schema migrations read from an fs.FS
//   - Transactions for multi-row writes
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is chmod 0600 after creation
//
// Usage:
//
//	db, err := database.OpenMigrated(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
// Migrations:
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql; migrations are
// forward only and .down.sql files are ignored. The migrations package registers the embedded set
// via MigrationsFS; each migration runs in its own transaction and is
// recorded in schema_migrations.
package database
