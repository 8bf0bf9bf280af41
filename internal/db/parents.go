package db

import (
	"context"
	"database/sql"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// UpsertParent registers a parent document's display title.
func (s *Store) UpsertParent(ctx context.Context, p note.Parent) error {
	query := `
		INSERT INTO parents (parent_type, parent_id, title)
		VALUES (?, ?, ?)
		ON CONFLICT(parent_type, parent_id) DO UPDATE SET title = excluded.title
	`
	if _, err := s.db.ExecContext(ctx, query, p.Type, p.ID, p.Title); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ParentTitle returns the registered title of a parent, or "" if none is registered.
func (s *Store) ParentTitle(ctx context.Context, parentType, parentID string) (string, error) {
	var title string
	err := s.db.QueryRowContext(ctx,
		`SELECT title FROM parents WHERE parent_type = ? AND parent_id = ?`,
		parentType, parentID,
	).Scan(&title)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return title, nil
}
