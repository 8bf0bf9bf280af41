package db

import (
	"context"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// InsertNotification stores a notification record.
func (s *Store) InsertNotification(ctx context.Context, n *note.Notification) error {
	query := `
		INSERT INTO notifications (
			id, kind, owner, recipient, note_id, message, text,
			redirect_type, redirect_id, read, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	read := 0
	if n.Read {
		read = 1
	}
	_, err := s.db.ExecContext(ctx, query,
		n.ID, string(n.Kind), n.Owner, n.Recipient, n.NoteID, n.Message, n.Text,
		n.RedirectType, n.RedirectID, read, n.CreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DeleteNotificationsForNote removes every notification that references noteID.
// Returns the number of records removed.
func (s *Store) DeleteNotificationsForNote(ctx context.Context, noteID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE note_id = ?`, noteID)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return n, nil
}

// ListNotifications returns notifications addressed to recipient, newest first.
// An empty recipient lists notifications for every recipient.
func (s *Store) ListNotifications(ctx context.Context, recipient string) ([]note.Notification, error) {
	query := `
		SELECT id, kind, owner, recipient, note_id, message, text,
			redirect_type, redirect_id, read, created_at
		FROM notifications
	`
	var args []any
	if recipient != "" {
		query += " WHERE recipient = ?"
		args = append(args, recipient)
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []note.Notification
	for rows.Next() {
		var (
			n    note.Notification
			kind string
			read int
		)
		if err := rows.Scan(
			&n.ID, &kind, &n.Owner, &n.Recipient, &n.NoteID, &n.Message, &n.Text,
			&n.RedirectType, &n.RedirectID, &read, &n.CreatedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		n.Kind = note.Kind(kind)
		n.Read = read != 0
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// CountNotificationsForNote returns how many notifications reference noteID.
func (s *Store) CountNotificationsForNote(ctx context.Context, noteID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE note_id = ?`, noteID).Scan(&count)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}
