// Package ops implements the note operations that keep rich and legacy notes in step.
//
// A note is written to two stores that share no key: the rich store (threads,
// attachments, mentions) and the legacy store (a plain copy). Writes to the rich store
// are authoritative; legacy writes are best-effort and their counterpart is located by
// exact owner/title/body match within a time window around the rich note's creation.
package ops

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/attach"
	"github.com/hpungsan/notebridge/internal/config"
	"github.com/hpungsan/notebridge/internal/db"
	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/legacy"
	"github.com/hpungsan/notebridge/internal/note"
	"github.com/hpungsan/notebridge/internal/notify"
)

// Default windows, in seconds.
const (
	DefaultDedupWindow = 60
	DefaultMatchWindow = 60
)

// RichStore is the authoritative store for rich notes and their dependents.
type RichStore interface {
	InsertNote(ctx context.Context, n *note.RichNote) error
	GetNote(ctx context.Context, id string) (*note.RichNote, error)
	NoteExists(ctx context.Context, id string) (bool, error)
	UpdateNote(ctx context.Context, n *note.RichNote) error
	DeleteNote(ctx context.Context, id string) error
	ListReplies(ctx context.Context, rootID string) ([]*note.RichNote, error)
	ListByParent(ctx context.Context, parentType, parentID string) ([]*note.RichNote, error)
	FindRecentDuplicate(ctx context.Context, q db.DuplicateQuery) (*note.RichNote, error)
	DeleteNotificationsForNote(ctx context.Context, noteID string) (int64, error)
	UpsertParent(ctx context.Context, p note.Parent) error
	ParentTitle(ctx context.Context, parentType, parentID string) (string, error)
}

// LegacyStore holds the plain legacy notes.
type LegacyStore interface {
	Insert(ctx context.Context, title, body, owner string, createdAt int64) (*note.LegacyNote, error)
	Get(ctx context.Context, id string) (*note.LegacyNote, error)
	Exists(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, n *note.LegacyNote) error
	Delete(ctx context.Context, id string) error
	FindLatest(ctx context.Context, q legacy.MatchQuery) (string, bool, error)
}

// Cleaner removes attachment files.
type Cleaner interface {
	DeleteFile(ctx context.Context, name string) error
	DeleteAll(ctx context.Context, names []string) attach.Result
}

// Notifier records and dispatches one mention notification.
type Notifier interface {
	Notify(ctx context.Context, m notify.Mention) error
}

// Actor is the identity performing an operation.
type Actor struct {
	User string
}

// Clock returns the current time.
type Clock func() time.Time

// Deps are the collaborators of Notes. Rich and Legacy are required.
type Deps struct {
	Rich     RichStore
	Legacy   LegacyStore
	Cleaner  Cleaner
	Notifier Notifier
	Authz    Authorizer
	Log      zerolog.Logger
	Clock    Clock

	// DedupWindow and MatchWindow are in seconds; zero selects the defaults.
	DedupWindow int
	MatchWindow int
}

// Notes runs note operations across the rich and legacy stores.
type Notes struct {
	rich     RichStore
	legacy   LegacyStore
	cleaner  Cleaner
	notifier Notifier
	authz    Authorizer
	log      zerolog.Logger
	clock    Clock

	dedupWindow int64
	matchWindow int64
}

// New creates Notes from deps, filling unset optional collaborators with no-op versions.
func New(deps Deps) *Notes {
	n := &Notes{
		rich:        deps.Rich,
		legacy:      deps.Legacy,
		cleaner:     deps.Cleaner,
		notifier:    deps.Notifier,
		authz:       deps.Authz,
		log:         deps.Log,
		clock:       deps.Clock,
		dedupWindow: int64(deps.DedupWindow),
		matchWindow: int64(deps.MatchWindow),
	}
	if n.cleaner == nil {
		n.cleaner = nopCleaner{}
	}
	if n.authz == nil {
		n.authz = AllowAll{}
	}
	if n.clock == nil {
		n.clock = time.Now
	}
	if n.dedupWindow <= 0 {
		n.dedupWindow = DefaultDedupWindow
	}
	if n.matchWindow <= 0 {
		n.matchWindow = DefaultMatchWindow
	}
	return n
}

// WindowsFromConfig copies the dedup and match windows from cfg into deps.
func WindowsFromConfig(deps Deps, cfg *config.Config) Deps {
	if cfg != nil {
		deps.DedupWindow = cfg.DedupWindowSecs
		deps.MatchWindow = cfg.MatchWindowSecs
	}
	return deps
}

func (n *Notes) now() int64 {
	return n.clock().Unix()
}

// requireUser rejects an anonymous actor.
func requireUser(actor Actor) error {
	if strings.TrimSpace(actor.User) == "" {
		return errors.NewInvalidRequest("caller identity is required")
	}
	return nil
}

type nopCleaner struct{}

func (nopCleaner) DeleteFile(context.Context, string) error { return nil }

func (nopCleaner) DeleteAll(context.Context, []string) attach.Result { return attach.Result{} }
