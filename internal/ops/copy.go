package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// CopyInput contains parameters for the Copy operation.
type CopyInput struct {
	FromType string
	FromID   string
	ToType   string
	ToID     string
}

// CopyOutput maps each source note id to its copy.
type CopyOutput struct {
	Copied map[string]string `json:"copied"`
}

// Copy duplicates every thread of one parent onto another, keeping each note's owner,
// content and attachment names. Used when a lead is converted to an opportunity.
// Copies have no legacy counterpart and send no notifications.
func (n *Notes) Copy(ctx context.Context, actor Actor, input CopyInput) (*CopyOutput, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.FromType) == "" || strings.TrimSpace(input.ToType) == "" {
		return nil, errors.NewInvalidRequest("source and destination parent types are required")
	}
	if input.FromType == input.ToType && input.FromID == input.ToID {
		return nil, errors.NewInvalidRequest("source and destination parents must differ")
	}

	listing, err := n.List(ctx, input.FromType, input.FromID)
	if err != nil {
		return nil, err
	}

	out := &CopyOutput{Copied: make(map[string]string)}
	now := n.now()
	for _, t := range listing.Threads {
		root, err := n.copyNote(ctx, t.RichNote, input, "", now)
		if err != nil {
			return nil, err
		}
		out.Copied[t.ID] = root.ID

		for _, reply := range t.Replies {
			c, err := n.copyNote(ctx, reply, input, root.ID, now)
			if err != nil {
				return nil, err
			}
			out.Copied[reply.ID] = c.ID
		}
	}

	n.log.Info().
		Str("from", input.FromType+"/"+input.FromID).
		Str("to", input.ToType+"/"+input.ToID).
		Int("notes", len(out.Copied)).
		Str("user", actor.User).
		Msg("notes copied")
	return out, nil
}

func (n *Notes) copyNote(ctx context.Context, src *note.RichNote, input CopyInput, parentNoteID string, now int64) (*note.RichNote, error) {
	id, err := note.NewID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	c := &note.RichNote{
		ID:           id,
		ParentType:   input.ToType,
		ParentID:     input.ToID,
		Title:        src.Title,
		Body:         src.Body,
		Owner:        src.Owner,
		CreatedAt:    now,
		UpdatedAt:    now,
		ParentNoteID: parentNoteID,
		Attachments:  note.MergeAttachments(nil, src.Attachments),
	}
	if err := n.rich.InsertNote(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}
