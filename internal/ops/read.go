package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// Thread is a root note with its replies, oldest first.
type Thread struct {
	*note.RichNote
	Replies []*note.RichNote `json:"replies"`
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	ParentType  string    `json:"parent_type"`
	ParentID    string    `json:"parent_id"`
	ParentTitle string    `json:"parent_title"`
	Threads     []*Thread `json:"threads"`
}

// Get returns a rich note by id.
func (n *Notes) Get(ctx context.Context, id string) (*note.RichNote, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.NewInvalidRequest("note id is required")
	}
	return n.rich.GetNote(ctx, id)
}

// List returns the threads attached to a parent, roots and replies oldest first.
// Replies whose root is missing are listed as roots.
func (n *Notes) List(ctx context.Context, parentType, parentID string) (*ListOutput, error) {
	parentType = strings.TrimSpace(parentType)
	parentID = strings.TrimSpace(parentID)
	if parentType == "" {
		return nil, errors.NewInvalidRequest("parent_type is required")
	}

	notes, err := n.rich.ListByParent(ctx, parentType, parentID)
	if err != nil {
		return nil, err
	}

	out := &ListOutput{
		ParentType:  parentType,
		ParentID:    parentID,
		ParentTitle: n.parentTitle(ctx, parentType, parentID),
		Threads:     []*Thread{},
	}
	byID := make(map[string]*Thread, len(notes))
	for _, rn := range notes {
		if !rn.IsReply() {
			t := &Thread{RichNote: rn, Replies: []*note.RichNote{}}
			byID[rn.ID] = t
			out.Threads = append(out.Threads, t)
		}
	}
	for _, rn := range notes {
		if !rn.IsReply() {
			continue
		}
		if t, ok := byID[rn.ParentNoteID]; ok {
			t.Replies = append(t.Replies, rn)
			continue
		}
		out.Threads = append(out.Threads, &Thread{RichNote: rn, Replies: []*note.RichNote{}})
	}
	return out, nil
}
