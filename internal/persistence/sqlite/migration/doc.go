// Package migration applies versioned SQL migrations to a SQLite database.
//
// Migration files are read from an fs.FS (normally an embedded directory) and
// follow the naming convention {version}_{description}.sql, for example
// "001_initial_schema.sql". Each file runs inside its own transaction and is
// recorded in the schema_migrations table so it is never applied twice.
//
// Statements are split on semicolons, except inside CREATE TRIGGER ... END
// blocks, which are kept whole.
//
// Example usage:
//
//	scanner := NewScanner(migrationsFS)
//	executor := NewSQLiteExecutor(db)
//	manager := NewManager(scanner, executor, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
