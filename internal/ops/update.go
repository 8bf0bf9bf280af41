package ops

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// UpdatePayload holds the fields an update replaces (nil = don't change).
type UpdatePayload struct {
	Title *string
	Body  *string
}

// BodyOnly is the payload for a bare body string.
func BodyOnly(body string) UpdatePayload {
	return UpdatePayload{Body: &body}
}

// ParseUpdatePayload accepts either a JSON string (the new body, title untouched) or an
// object with title/body. The object keys custom_title and note are accepted as aliases.
func ParseUpdatePayload(raw json.RawMessage) (UpdatePayload, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return UpdatePayload{}, errors.NewInvalidRequest("note payload is required")
	}

	if raw[0] == '"' {
		var body string
		if err := json.Unmarshal(raw, &body); err != nil {
			return UpdatePayload{}, errors.NewInvalidRequest("invalid note payload: " + err.Error())
		}
		return BodyOnly(body), nil
	}

	var obj struct {
		Title       *string `json:"title"`
		Body        *string `json:"body"`
		CustomTitle *string `json:"custom_title"`
		Note        *string `json:"note"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return UpdatePayload{}, errors.NewInvalidRequest("note payload must be a string or an object with title/body")
	}
	p := UpdatePayload{Title: obj.Title, Body: obj.Body}
	if p.Title == nil {
		p.Title = obj.CustomTitle
	}
	if p.Body == nil {
		p.Body = obj.Note
	}
	return p, nil
}

// UpdateInput contains parameters for the Update operation.
// ParentType and ParentID are optional; when given they must match the note's parent.
type UpdateInput struct {
	ParentType  string
	ParentID    string
	NoteID      string
	Payload     UpdatePayload
	Attachments []string
}

// Update changes a rich note's title/body, merges attachments by filename, and applies
// the same changes to the paired legacy note (best-effort). The legacy note is located
// with the values the rich note had before this update.
func (n *Notes) Update(ctx context.Context, actor Actor, input UpdateInput) (*note.RichNote, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	noteID := strings.TrimSpace(input.NoteID)
	if noteID == "" {
		return nil, errors.NewInvalidRequest("note id is required")
	}
	p := input.Payload
	if p.Title == nil && p.Body == nil {
		return nil, errors.NewInvalidRequest("either title or body is required")
	}

	rn, err := n.rich.GetNote(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if input.ParentType != "" && (input.ParentType != rn.ParentType || input.ParentID != rn.ParentID) {
		return nil, errors.NewInvalidRequest("note does not belong to " + input.ParentType + "/" + input.ParentID)
	}
	if err := n.authorize(actor, rn.Owner, "note "+rn.ID); err != nil {
		return nil, err
	}

	before := *rn

	if p.Title != nil {
		rn.Title = *p.Title
	}
	if p.Body != nil {
		rn.Body = *p.Body
	}
	if !note.HasContent(rn.Title, rn.Body) {
		return nil, errors.NewInvalidRequest("either title or body is required")
	}
	rn.Attachments = note.MergeAttachments(rn.Attachments, input.Attachments)
	rn.UpdatedAt = n.now()

	if err := n.rich.UpdateNote(ctx, rn); err != nil {
		return nil, err
	}

	n.updateLegacy(ctx, &before, p, rn.UpdatedAt)
	n.notifyMentions(ctx, actor, rn)
	return rn, nil
}

// updateLegacy applies p to the legacy note paired with before. Failures are logged.
func (n *Notes) updateLegacy(ctx context.Context, before *note.RichNote, p UpdatePayload, updatedAt int64) {
	legacyID, ok, err := n.findLegacyFor(ctx, before)
	if err != nil {
		n.log.Warn().Err(err).Str("rich_id", before.ID).Msg("legacy lookup for update failed")
		return
	}
	if !ok {
		n.log.Debug().Str("rich_id", before.ID).Msg("no legacy note paired for update")
		return
	}

	ln, err := n.legacy.Get(ctx, legacyID)
	if err != nil {
		n.log.Warn().Err(err).Str("rich_id", before.ID).Str("legacy_id", legacyID).Msg("legacy note load failed")
		return
	}
	if p.Title != nil {
		ln.Title = note.TitleOrUntitled(*p.Title)
	}
	if p.Body != nil {
		ln.Body = *p.Body
	}
	ln.UpdatedAt = updatedAt
	if err := n.legacy.Update(ctx, ln); err != nil {
		n.log.Warn().Err(err).Str("rich_id", before.ID).Str("legacy_id", legacyID).Msg("legacy note update failed")
	}
}
