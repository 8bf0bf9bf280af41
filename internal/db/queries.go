package db

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// Store is the rich note store. It owns rich notes, their attachment rows, mention
// notification records and the parent title registry.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

const noteColumns = `id, parent_type, parent_id, title, body, owner, parent_note_id, created_at, updated_at`

// InsertNote stores a new rich note and its attachment rows in one transaction.
func (s *Store) InsertNote(ctx context.Context, n *note.RichNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO rich_notes (` + noteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = tx.ExecContext(ctx, query,
		n.ID, n.ParentType, n.ParentID, toNullString(n.Title), toNullString(n.Body),
		n.Owner, toNullString(n.ParentNoteID), n.CreatedAt, n.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	if err := replaceAttachments(ctx, tx, n.ID, n.Attachments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetNote retrieves a rich note with its attachments.
func (s *Store) GetNote(ctx context.Context, id string) (*note.RichNote, error) {
	query := `SELECT ` + noteColumns + ` FROM rich_notes WHERE id = ?`

	n, err := scanNote(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := s.loadAttachments(ctx, []*note.RichNote{n}); err != nil {
		return nil, err
	}
	return n, nil
}

// NoteExists reports whether a rich note with the given id exists.
func (s *Store) NoteExists(ctx context.Context, id string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM rich_notes WHERE id = ? LIMIT 1`, id).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// UpdateNote persists title, body, updated_at and the attachment list.
// Does NOT change: id, parent, owner, created_at, parent_note_id
func (s *Store) UpdateNote(ctx context.Context, n *note.RichNote) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE rich_notes
		SET title = ?, body = ?, updated_at = ?
		WHERE id = ?
	`, toNullString(n.Title), toNullString(n.Body), n.UpdatedAt, n.ID)
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

	if err := replaceAttachments(ctx, tx, n.ID, n.Attachments); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteNote hard-deletes a rich note and its attachment rows.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM note_attachments WHERE note_id = ?`, id); err != nil {
		return errors.NewInternal(err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM rich_notes WHERE id = ?`, id)
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

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListReplies returns the notes whose parent_note_id is rootID, oldest first.
func (s *Store) ListReplies(ctx context.Context, rootID string) ([]*note.RichNote, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM rich_notes
		WHERE parent_note_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryNotes(ctx, query, rootID)
}

// ListByParent returns every note (roots and replies) attached to a parent, oldest first.
func (s *Store) ListByParent(ctx context.Context, parentType, parentID string) ([]*note.RichNote, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM rich_notes
		WHERE parent_type = ? AND parent_id = ?
		ORDER BY created_at ASC, id ASC
	`
	return s.queryNotes(ctx, query, parentType, parentID)
}

// DuplicateQuery describes a create request for duplicate detection.
type DuplicateQuery struct {
	ParentType string
	ParentID   string
	Owner      string
	Title      string
	Body       string
	Since      int64 // exclusive lower bound on created_at
}

// FindRecentDuplicate returns a note by the same owner on the same parent created after
// q.Since whose title or body equals the request's. Empty request fields never match.
// Returns nil, nil when there is no such note.
func (s *Store) FindRecentDuplicate(ctx context.Context, q DuplicateQuery) (*note.RichNote, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM rich_notes
		WHERE parent_id = ?
		  AND parent_type = ?
		  AND owner = ?
		  AND created_at > ?
		  AND ((body IS NOT NULL AND body = ?) OR (title IS NOT NULL AND title = ?))
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	n, err := scanNote(s.db.QueryRowContext(ctx, query,
		q.ParentID, q.ParentType, q.Owner, q.Since,
		toNullString(q.Body), toNullString(q.Title),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := s.loadAttachments(ctx, []*note.RichNote{n}); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Store) queryNotes(ctx context.Context, query string, args ...any) ([]*note.RichNote, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var notes []*note.RichNote
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := s.loadAttachments(ctx, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// loadAttachments fills in the Attachments field for each note in position order.
func (s *Store) loadAttachments(ctx context.Context, notes []*note.RichNote) error {
	if len(notes) == 0 {
		return nil
	}

	byID := make(map[string]*note.RichNote, len(notes))
	placeholders := make([]string, 0, len(notes))
	args := make([]any, 0, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		placeholders = append(placeholders, "?")
		args = append(args, n.ID)
	}

	query := `
		SELECT note_id, filename
		FROM note_attachments
		WHERE note_id IN (` + strings.Join(placeholders, ", ") + `)
		ORDER BY note_id, position ASC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var noteID, filename string
		if err := rows.Scan(&noteID, &filename); err != nil {
			return errors.NewInternal(err)
		}
		if n, ok := byID[noteID]; ok {
			n.Attachments = append(n.Attachments, filename)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// replaceAttachments rewrites the attachment rows of a note inside tx.
func replaceAttachments(ctx context.Context, tx *sql.Tx, noteID string, filenames []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM note_attachments WHERE note_id = ?`, noteID); err != nil {
		return errors.NewInternal(err)
	}
	for i, name := range filenames {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO note_attachments (note_id, position, filename) VALUES (?, ?, ?)`,
			noteID, i, name,
		)
		if err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanNote scans a single row into a RichNote (attachments are loaded separately).
func scanNote(row scanner) (*note.RichNote, error) {
	var (
		n            note.RichNote
		title        sql.NullString
		body         sql.NullString
		parentNoteID sql.NullString
	)

	err := row.Scan(
		&n.ID, &n.ParentType, &n.ParentID, &title, &body,
		&n.Owner, &parentNoteID, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	n.Title = title.String
	n.Body = body.String
	n.ParentNoteID = parentNoteID.String
	return &n, nil
}

// toNullString maps the empty string to NULL so that absent titles and bodies never
// compare equal to each other.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
