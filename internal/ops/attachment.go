package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
)

// DeleteAttachmentInput contains parameters for the DeleteAttachment operation.
type DeleteAttachmentInput struct {
	FileName string
	NoteID   string // optional; when set the file must be attached to this note
}

// DeleteAttachmentOutput contains the result of the DeleteAttachment operation.
type DeleteAttachmentOutput struct {
	Status   string `json:"status"`
	FileName string `json:"file_name"`
	NoteID   string `json:"note_id,omitempty"`
}

// DeleteAttachment detaches a file from a note (when NoteID is given) and deletes the
// file. A file already missing from the file store is not an error.
func (n *Notes) DeleteAttachment(ctx context.Context, actor Actor, input DeleteAttachmentInput) (*DeleteAttachmentOutput, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, errors.NewInvalidRequest("file name is required")
	}
	noteID := strings.TrimSpace(input.NoteID)

	if noteID != "" {
		rn, err := n.rich.GetNote(ctx, noteID)
		if err != nil {
			return nil, err
		}
		if err := n.authorize(actor, rn.Owner, "note "+rn.ID); err != nil {
			return nil, err
		}

		kept := make([]string, 0, len(rn.Attachments))
		removed := false
		for _, name := range rn.Attachments {
			if name == fileName {
				removed = true
				continue
			}
			kept = append(kept, name)
		}
		if !removed {
			return nil, errors.NewAttachmentNotFound(fileName)
		}
		if len(kept) == 0 {
			kept = nil
		}
		rn.Attachments = kept
		rn.UpdatedAt = n.now()
		if err := n.rich.UpdateNote(ctx, rn); err != nil {
			return nil, err
		}
	}

	if err := n.cleaner.DeleteFile(ctx, fileName); err != nil {
		return nil, err
	}

	return &DeleteAttachmentOutput{Status: "deleted", FileName: fileName, NoteID: noteID}, nil
}
