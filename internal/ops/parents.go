package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
)

// RegisterParent records the display title of a parent document.
func (n *Notes) RegisterParent(ctx context.Context, p note.Parent) (*note.Parent, error) {
	p.Type = strings.TrimSpace(p.Type)
	p.ID = strings.TrimSpace(p.ID)
	p.Title = strings.TrimSpace(p.Title)
	if p.Type == "" || p.ID == "" {
		return nil, errors.NewInvalidRequest("parent_type and parent_id are required")
	}
	if err := n.rich.UpsertParent(ctx, p); err != nil {
		return nil, err
	}
	return &p, nil
}
