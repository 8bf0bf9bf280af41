package ops

import (
	"context"

	"github.com/hpungsan/notebridge/internal/db"
)

// CheckDuplicate looks for a note by actor on the same parent created within the dedup
// window (strictly after now - window) whose title or body equals the request's. Empty
// fields never match. On a hit it returns the existing pairing, with the legacy id found
// by the Matcher around the existing note's creation time.
//
// A failed lookup is logged and treated as a miss: a broken guard must not block creates.
func (n *Notes) CheckDuplicate(ctx context.Context, actor Actor, parentType, parentID, title, body string, now int64) (*CreateOutput, bool) {
	existing, err := n.rich.FindRecentDuplicate(ctx, db.DuplicateQuery{
		ParentType: parentType,
		ParentID:   parentID,
		Owner:      actor.User,
		Title:      title,
		Body:       body,
		Since:      now - n.dedupWindow,
	})
	if err != nil {
		n.log.Warn().Err(err).
			Str("user", actor.User).
			Str("parent", parentType+"/"+parentID).
			Msg("duplicate check failed")
		return nil, false
	}
	if existing == nil {
		return nil, false
	}

	n.log.Info().
		Str("user", actor.User).
		Str("parent", parentType+"/"+parentID).
		Str("rich_id", existing.ID).
		Msg("duplicate create prevented")

	out := &CreateOutput{RichID: existing.ID, Duplicate: true}
	legacyID, ok, err := n.findLegacyFor(ctx, existing)
	if err != nil {
		n.log.Warn().Err(err).Str("rich_id", existing.ID).Msg("legacy lookup for duplicate failed")
	} else if ok {
		out.LegacyID = legacyID
	}
	return out, true
}
