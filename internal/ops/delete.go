package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/hpungsan/notebridge/internal/attach"
	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// ParseDeleteTarget extracts a note id from a bare JSON string or from an object
// carrying it under name, crm_note or note_name (first non-empty wins).
func ParseDeleteTarget(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.NewInvalidRequest("note id is required")
	}

	var id string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", errors.NewInvalidRequest("invalid note id: " + err.Error())
		}
	} else {
		var obj struct {
			Name     string `json:"name"`
			CRMNote  string `json:"crm_note"`
			NoteName string `json:"note_name"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", errors.NewInvalidRequest("note must be an id or an object with name, crm_note or note_name")
		}
		for _, candidate := range []string{obj.Name, obj.CRMNote, obj.NoteName} {
			if strings.TrimSpace(candidate) != "" {
				id = candidate
				break
			}
		}
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.NewInvalidRequest("note id is required")
	}
	return id, nil
}

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	NoteID string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Status       string        `json:"status"`
	ID           string        `json:"id"`
	DeletedNotes []string      `json:"deleted_notes,omitempty"`
	LegacyNotes  []string      `json:"legacy_notes,omitempty"`
	Attachments  attach.Result `json:"attachments"`
}

// Delete removes a note, its replies (when it is a thread root), the paired legacy note
// of each, their notification records and finally their attachment files.
//
// Replies go first and the target rich note is deleted last; if any reply cannot be
// deleted the root is left untouched. Cleanup failures are logged and do not stop the
// primary deletes. An id known only to the legacy store deletes just that legacy note,
// and an id neither store knows is already deleted. Validation and permission errors
// are returned as-is; a failure once deletion has begun is returned as UNEXPECTED.
func (n *Notes) Delete(ctx context.Context, actor Actor, input DeleteInput) (*DeleteOutput, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(input.NoteID)
	if id == "" {
		return nil, errors.NewInvalidRequest("note id is required")
	}

	exists, err := n.rich.NoteExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return n.deleteLegacyOnly(ctx, actor, id)
	}

	root, err := n.rich.GetNote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := n.authorize(actor, root.Owner, "note "+root.ID); err != nil {
		return nil, err
	}

	var replies []*note.RichNote
	if !root.IsReply() {
		replies, err = n.rich.ListReplies(ctx, root.ID)
		if err != nil {
			return nil, err
		}
	}

	out := &DeleteOutput{Status: "deleted", ID: root.ID}
	var files []string
	failed := false

	remove := func(rn *note.RichNote) {
		legacyID, err := n.cascadeDelete(ctx, rn)
		if legacyID != "" {
			out.LegacyNotes = append(out.LegacyNotes, legacyID)
		}
		if err != nil {
			failed = true
			n.log.Error().Err(err).Str("rich_id", rn.ID).Str("root_id", root.ID).Msg("note delete failed")
			return
		}
		out.DeletedNotes = append(out.DeletedNotes, rn.ID)
		files = append(files, rn.Attachments...)
	}

	for _, reply := range replies {
		remove(reply)
	}
	// The root outlives any reply that could not be deleted.
	if failed {
		n.log.Warn().Str("rich_id", root.ID).Msg("keeping thread root: a reply could not be deleted")
	} else {
		remove(root)
	}

	if len(files) > 0 {
		n.log.Info().Str("rich_id", root.ID).Strs("files", files).Msg("deleting note attachments")
	}
	out.Attachments = n.cleaner.DeleteAll(ctx, files)

	if failed {
		return nil, errors.NewUnexpected("deleting the note")
	}

	n.log.Info().
		Str("rich_id", root.ID).
		Strs("legacy_ids", out.LegacyNotes).
		Int("replies", len(replies)).
		Str("user", actor.User).
		Msg("note deleted")
	return out, nil
}

// cascadeDelete removes rn's paired legacy note and notification records (best-effort),
// then rn itself. It returns the deleted legacy id, if any, and the rich delete error.
func (n *Notes) cascadeDelete(ctx context.Context, rn *note.RichNote) (string, error) {
	deletedLegacy := ""
	legacyID, ok, err := n.findLegacyFor(ctx, rn)
	switch {
	case err != nil:
		n.log.Warn().Err(err).Str("rich_id", rn.ID).Msg("legacy lookup for delete failed")
	case ok:
		if err := n.legacy.Delete(ctx, legacyID); err != nil && !errors.Is(err, errors.ErrNotFound) {
			n.log.Warn().Err(err).Str("rich_id", rn.ID).Str("legacy_id", legacyID).Msg("legacy note delete failed")
		} else if err == nil {
			deletedLegacy = legacyID
		}
	}

	if _, err := n.rich.DeleteNotificationsForNote(ctx, rn.ID); err != nil {
		n.log.Warn().Err(err).Str("rich_id", rn.ID).Msg("notification cleanup failed")
	}

	return deletedLegacy, n.rich.DeleteNote(ctx, rn.ID)
}

func (n *Notes) deleteLegacyOnly(ctx context.Context, actor Actor, id string) (*DeleteOutput, error) {
	ln, err := n.legacy.Get(ctx, id)
	if errors.Is(err, errors.ErrNotFound) {
		n.log.Debug().Str("note_id", id).Msg("delete of unknown note id")
		return &DeleteOutput{Status: "deleted", ID: id}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := n.authorize(actor, ln.Owner, "legacy note "+ln.ID); err != nil {
		return nil, err
	}
	if err := n.legacy.Delete(ctx, id); err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return &DeleteOutput{Status: "deleted", ID: id}, nil
		}
		n.log.Error().Err(err).Str("legacy_id", id).Msg("legacy-only delete failed")
		return nil, errors.NewUnexpected("deleting the note")
	}

	n.log.Info().Str("legacy_id", id).Str("user", actor.User).Msg("legacy-only note deleted")
	return &DeleteOutput{Status: "deleted", ID: id, LegacyNotes: []string{id}}, nil
}
