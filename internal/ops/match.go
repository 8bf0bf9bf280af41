package ops

import (
	"context"

	"github.com/hpungsan/notebridge/internal/legacy"
	"github.com/hpungsan/notebridge/internal/note"
)

// FindLegacy returns the id of the legacy note paired with a rich note having the given
// owner, title and body. The title is compared as the legacy store holds it ("Untitled"
// when empty). With aroundTime set, only legacy notes created within the inclusive
// match window around it are considered. The most recently created match wins.
func (n *Notes) FindLegacy(ctx context.Context, owner, title, body string, aroundTime *int64) (string, bool, error) {
	q := legacy.MatchQuery{
		Owner: owner,
		Title: note.TitleOrUntitled(title),
		Body:  body,
	}
	if aroundTime != nil {
		from := *aroundTime - n.matchWindow
		to := *aroundTime + n.matchWindow
		q.From = &from
		q.To = &to
	}
	return n.legacy.FindLatest(ctx, q)
}

// findLegacyFor matches against a rich note's current values and creation time.
func (n *Notes) findLegacyFor(ctx context.Context, rn *note.RichNote) (string, bool, error) {
	createdAt := rn.CreatedAt
	return n.FindLegacy(ctx, rn.Owner, rn.Title, rn.Body, &createdAt)
}
