package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/notebridge/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the rich note SQLite database at baseDir/notebridge.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.notebridge.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, "notebridge.db")
	db, err := Open(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// Open opens a SQLite file in WAL mode with a busy timeout. It does not migrate.
func Open(dbPath string) (*sql.DB, error) {
	// Pragmas in the connection string apply to all connections
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS rich_notes (
		  id              TEXT PRIMARY KEY,
		  parent_type     TEXT NOT NULL,
		  parent_id       TEXT NOT NULL DEFAULT '',
		  title           TEXT,
		  body            TEXT,
		  owner           TEXT NOT NULL,
		  parent_note_id  TEXT,
		  created_at      INTEGER NOT NULL,
		  updated_at      INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_rich_notes_parent_owner_created
		ON rich_notes(parent_type, parent_id, owner, created_at DESC);

		CREATE INDEX IF NOT EXISTS idx_rich_notes_parent_note
		ON rich_notes(parent_note_id)
		WHERE parent_note_id IS NOT NULL;

		CREATE TABLE IF NOT EXISTS note_attachments (
		  note_id   TEXT NOT NULL,
		  position  INTEGER NOT NULL,
		  filename  TEXT NOT NULL,
		  PRIMARY KEY (note_id, filename)
		);

		CREATE TABLE IF NOT EXISTS notifications (
		  id             TEXT PRIMARY KEY,
		  kind           TEXT NOT NULL,
		  owner          TEXT NOT NULL,
		  recipient      TEXT NOT NULL,
		  note_id        TEXT NOT NULL,
		  message        TEXT NOT NULL DEFAULT '',
		  text           TEXT NOT NULL DEFAULT '',
		  redirect_type  TEXT NOT NULL DEFAULT '',
		  redirect_id    TEXT NOT NULL DEFAULT '',
		  read           INTEGER NOT NULL DEFAULT 0,
		  created_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_notifications_note
		ON notifications(note_id);

		CREATE INDEX IF NOT EXISTS idx_notifications_recipient
		ON notifications(recipient, created_at DESC);

		CREATE TABLE IF NOT EXISTS parents (
		  parent_type  TEXT NOT NULL,
		  parent_id    TEXT NOT NULL,
		  title        TEXT NOT NULL DEFAULT '',
		  PRIMARY KEY (parent_type, parent_id)
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
