package ops

import (
	"context"

	"github.com/hpungsan/notebridge/internal/mention"
	"github.com/hpungsan/notebridge/internal/note"
	"github.com/hpungsan/notebridge/internal/notify"
)

// notifyMentions sends one Mention notification per user mentioned in rn's body.
// Failures are logged and never returned.
func (n *Notes) notifyMentions(ctx context.Context, actor Actor, rn *note.RichNote) {
	if n.notifier == nil {
		return
	}
	recipients := mention.Extract(rn.Body)
	if len(recipients) == 0 {
		return
	}

	title := n.parentTitle(ctx, rn.ParentType, rn.ParentID)
	now := n.now()
	for _, recipient := range recipients {
		if recipient == actor.User {
			continue
		}
		err := n.notifier.Notify(ctx, notify.Mention{
			Owner:       actor.User,
			Recipient:   recipient,
			NoteID:      rn.ID,
			ParentType:  rn.ParentType,
			ParentID:    rn.ParentID,
			ParentTitle: title,
			Body:        rn.Body,
			CreatedAt:   now,
		})
		if err != nil {
			n.log.Warn().Err(err).
				Str("rich_id", rn.ID).
				Str("recipient", recipient).
				Msg("mention notification failed")
		}
	}
}

// parentTitle resolves a parent's display title, falling back to its id.
func (n *Notes) parentTitle(ctx context.Context, parentType, parentID string) string {
	title, err := n.rich.ParentTitle(ctx, parentType, parentID)
	if err != nil {
		n.log.Warn().Err(err).Str("parent", parentType+"/"+parentID).Msg("parent title lookup failed")
	}
	if title == "" {
		return parentID
	}
	return title
}
