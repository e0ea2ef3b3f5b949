package database

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// SchemaVersion represents the current database schema version
const SchemaVersion = 2

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	Up          string
	Down        string
}

// Schema contains all database migrations
var Schema = []Migration{
	{
		Version:     1,
		Description: "Initial schema with dislikes",
		Up: `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);

		-- One row per disliked entity, unique per (kind, uri)
		CREATE TABLE IF NOT EXISTS dislikes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL DEFAULT 'TRACK',
			uri TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			UNIQUE(kind, uri)
		);

		CREATE INDEX IF NOT EXISTS idx_dislikes_uri ON dislikes(uri);
		CREATE INDEX IF NOT EXISTS idx_dislikes_created ON dislikes(created_at, id);

		INSERT INTO schema_migrations (version, description) VALUES (1, 'Initial schema with dislikes');
		`,
		Down: `
		DROP INDEX IF EXISTS idx_dislikes_created;
		DROP INDEX IF EXISTS idx_dislikes_uri;
		DROP TABLE IF EXISTS dislikes;
		`,
	},
	{
		Version:     2,
		Description: "Track last update time of dislikes",
		Up: `
		ALTER TABLE dislikes ADD COLUMN updated_at INTEGER;
		UPDATE dislikes SET updated_at = created_at WHERE updated_at IS NULL;

		INSERT INTO schema_migrations (version, description) VALUES (2, 'Track last update time of dislikes');
		`,
		Down: `
		ALTER TABLE dislikes DROP COLUMN updated_at;
		`,
	},
}

// InitSchema initializes the database schema
func InitSchema(db *sql.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	// Check current schema version
	currentVersion, err := GetSchemaVersion(db)
	if err != nil {
		// Table doesn't exist yet
		currentVersion = 0
	}

	for _, migration := range Schema {
		if migration.Version > currentVersion {
			logger.Info("Applying migration", zap.Int("version", migration.Version), zap.String("description", migration.Description))

			tx, err := db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}

			if _, err := tx.Exec(migration.Up); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to apply migration %d: %w", migration.Version, err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
			}

			logger.Debug("Successfully applied migration", zap.Int("version", migration.Version))
		}
	}

	return nil
}

// GetSchemaVersion returns the current schema version
func GetSchemaVersion(db *sql.DB) (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// MigrateUp applies all pending migrations
func MigrateUp(db *sql.DB, logger *zap.Logger) error {
	return InitSchema(db, logger)
}

// MigrateDown rolls back to a specific version
func MigrateDown(db *sql.DB, targetVersion int, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	currentVersion, err := GetSchemaVersion(db)
	if err != nil {
		return err
	}

	if targetVersion >= currentVersion {
		return fmt.Errorf("target version %d must be less than current version %d", targetVersion, currentVersion)
	}

	// Apply down migrations in reverse order
	for i := len(Schema) - 1; i >= 0; i-- {
		migration := Schema[i]
		if migration.Version > targetVersion && migration.Version <= currentVersion {
			logger.Info("Rolling back migration", zap.Int("version", migration.Version), zap.String("description", migration.Description))

			tx, err := db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin transaction: %w", err)
			}

			if _, err := tx.Exec(migration.Down); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to rollback migration %d: %w", migration.Version, err)
			}

			if _, err := tx.Exec("DELETE FROM schema_migrations WHERE version = ?", migration.Version); err != nil {
				tx.Rollback()
				return fmt.Errorf("failed to update schema_migrations: %w", err)
			}

			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit rollback %d: %w", migration.Version, err)
			}

			logger.Info("Successfully rolled back migration", zap.Int("version", migration.Version))
		}
	}

	return nil
}
