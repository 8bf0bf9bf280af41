// Package legacy stores the plain legacy notes that mirror rich notes for older tooling.
//
// The legacy store is deliberately separate from the rich store: it lives in its own
// SQLite file or in Postgres, and its ids come from an independent id space.
package legacy

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// Dialect identifies the SQL flavour of the backing database.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store is the legacy note store.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (and migrates) baseDir/legacy.db.
func OpenSQLite(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	dsn := filepath.Join(baseDir, "legacy.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open legacy database: %w", err)
	}
	return newStore(context.Background(), db, DialectSQLite)
}

// OpenPostgres connects to Postgres through the pgx stdlib driver and migrates.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open legacy db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping legacy db: %w", err)
	}
	return newStore(ctx, db, DialectPostgres)
}

// Open selects a backend by driver name. An empty driver means sqlite under baseDir.
func Open(ctx context.Context, driver, dsn, baseDir string) (*Store, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(driver))) {
	case "", DialectSQLite:
		if dsn != "" {
			baseDir = dsn
		}
		return OpenSQLite(baseDir)
	case DialectPostgres:
		if dsn == "" {
			return nil, fmt.Errorf("legacy_dsn is required for the postgres legacy store")
		}
		return OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown legacy driver %q (want sqlite or postgres)", driver)
	}
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect reports the backing database flavour.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS legacy_notes (
		  id          TEXT PRIMARY KEY,
		  title       TEXT NOT NULL,
		  body        TEXT NOT NULL,
		  owner       TEXT NOT NULL,
		  created_at  BIGINT NOT NULL,
		  updated_at  BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_legacy_notes_match
		 ON legacy_notes(owner, title, created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("legacy migration failed: %w", err)
		}
	}
	return nil
}

// Insert creates a legacy note and assigns its id. Title falls back to note.Untitled.
func (s *Store) Insert(ctx context.Context, title, body, owner string, createdAt int64) (*note.LegacyNote, error) {
	id, err := note.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	n := &note.LegacyNote{
		ID:        id,
		Title:     note.TitleOrUntitled(title),
		Body:      body,
		Owner:     owner,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO legacy_notes (id, title, body, owner, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`), n.ID, n.Title, n.Body, n.Owner, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return n, nil
}

// Get retrieves a legacy note by id.
func (s *Store) Get(ctx context.Context, id string) (*note.LegacyNote, error) {
	var n note.LegacyNote
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT id, title, body, owner, created_at, updated_at
		FROM legacy_notes WHERE id = ?
	`), id).Scan(&n.ID, &n.Title, &n.Body, &n.Owner, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &n, nil
}

// Exists reports whether a legacy note with the given id exists.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM legacy_notes WHERE id = ?`), id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// Update persists title, body and updated_at of an existing legacy note.
func (s *Store) Update(ctx context.Context, n *note.LegacyNote) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE legacy_notes SET title = ?, body = ?, updated_at = ? WHERE id = ?
	`), note.TitleOrUntitled(n.Title), n.Body, n.UpdatedAt, n.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(n.ID)
	}
	return nil
}

// Delete removes a legacy note.
func (s *Store) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM legacy_notes WHERE id = ?`), id)
	if err != nil {
		return errors.NewInternal(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// MatchQuery is an exact-match filter with an optional inclusive created_at range.
type MatchQuery struct {
	Owner string
	Title string
	Body  string
	From  *int64
	To    *int64
}

// FindLatest returns the id of the most recently created legacy note matching q.
// The second return is false when nothing matches.
func (s *Store) FindLatest(ctx context.Context, q MatchQuery) (string, bool, error) {
	query := `
		SELECT id FROM legacy_notes
		WHERE owner = ? AND title = ? AND body = ?
	`
	args := []any{q.Owner, q.Title, q.Body}
	if q.From != nil {
		query += " AND created_at >= ?"
		args = append(args, *q.From)
	}
	if q.To != nil {
		query += " AND created_at <= ?"
		args = append(args, *q.To)
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT 1"

	var id string
	err := s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewInternal(err)
	}
	return id, true, nil
}

// Count returns the number of legacy notes.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM legacy_notes`).Scan(&count); err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// rebind rewrites ? placeholders as $1..$n for Postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
