package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// CreateInput contains parameters for the Create operation.
type CreateInput struct {
	ParentType   string
	ParentID     string
	Title        string
	Body         string
	ParentNoteID string
	Attachments  []string
}

// CreateOutput contains the result of the Create operation.
// LegacyID is empty when no legacy note was written or matched.
type CreateOutput struct {
	RichID    string `json:"rich_id"`
	LegacyID  string `json:"legacy_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Create writes a rich note and, best-effort, its legacy copy, then notifies mentions.
// A repeated submission inside the dedup window returns the existing note unchanged.
// Any identified user may create a note or reply to any thread; the Authorizer only
// governs changes to existing notes.
func (n *Notes) Create(ctx context.Context, actor Actor, input CreateInput) (*CreateOutput, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if !note.HasContent(input.Title, input.Body) {
		return nil, errors.NewInvalidRequest("either title or body is required")
	}

	parentType := strings.TrimSpace(input.ParentType)
	parentID := strings.TrimSpace(input.ParentID)
	parentNoteID := strings.TrimSpace(input.ParentNoteID)

	// Replies belong to their thread root's parent; a reply to a reply joins the root.
	if parentNoteID != "" {
		parentNote, err := n.rich.GetNote(ctx, parentNoteID)
		if err != nil {
			if errors.Is(err, errors.ErrNotFound) {
				return nil, errors.NewInvalidRequest("parent note not found: " + parentNoteID)
			}
			return nil, err
		}
		if parentNote.IsReply() {
			parentNoteID = parentNote.ParentNoteID
		}
		if parentType == "" {
			parentType, parentID = parentNote.ParentType, parentNote.ParentID
		}
		if parentType != parentNote.ParentType || parentID != parentNote.ParentID {
			return nil, errors.NewInvalidRequest("reply must be attached to the same parent as its thread")
		}
	}
	if parentType == "" {
		return nil, errors.NewInvalidRequest("parent_type is required")
	}

	now := n.now()
	if dup, ok := n.CheckDuplicate(ctx, actor, parentType, parentID, input.Title, input.Body, now); ok {
		return dup, nil
	}

	id, err := note.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	rn := &note.RichNote{
		ID:           id,
		ParentType:   parentType,
		ParentID:     parentID,
		Title:        input.Title,
		Body:         input.Body,
		Owner:        actor.User,
		CreatedAt:    now,
		UpdatedAt:    now,
		ParentNoteID: parentNoteID,
		Attachments:  note.MergeAttachments(nil, input.Attachments),
	}
	if err := n.rich.InsertNote(ctx, rn); err != nil {
		return nil, err
	}

	out := &CreateOutput{RichID: rn.ID}
	ln, err := n.legacy.Insert(ctx, rn.Title, rn.Body, rn.Owner, rn.CreatedAt)
	if err != nil {
		n.log.Warn().Err(err).Str("rich_id", rn.ID).Msg("legacy note insert failed")
	} else {
		out.LegacyID = ln.ID
	}

	n.log.Info().
		Str("rich_id", rn.ID).
		Str("legacy_id", out.LegacyID).
		Str("user", actor.User).
		Str("parent", parentType+"/"+parentID).
		Msg("note created")

	n.notifyMentions(ctx, actor, rn)
	return out, nil
}
