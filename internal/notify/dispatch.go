package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/note"
)

// Recorder persists notification records.
type Recorder interface {
	InsertNotification(ctx context.Context, n *note.Notification) error
}

// Mention is one mention notification request.
type Mention struct {
	Owner       string
	Recipient   string
	NoteID      string
	ParentType  string
	ParentID    string
	ParentTitle string
	Body        string
	CreatedAt   int64
}

// Subject returns the delivery subject line for m.
func (m Mention) Subject() string {
	return fmt.Sprintf("%s mentioned you in a Note in %s %s", m.Owner, m.ParentType, m.ParentTitle)
}

// Dispatcher stores a notification record and queues its delivery.
type Dispatcher struct {
	records Recorder
	queue   Queue
	log     zerolog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(records Recorder, queue Queue, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{records: records, queue: queue, log: log}
}

// Notify records the notification and queues delivery. A failed push is logged, not
// returned: the record already exists and delivery is at-least-once from the worker's view.
func (d *Dispatcher) Notify(ctx context.Context, m Mention) error {
	id, err := note.NewID()
	if err != nil {
		return fmt.Errorf("notification id: %w", err)
	}
	subject := m.Subject()

	rec := &note.Notification{
		ID:           id,
		Kind:         note.KindMention,
		Owner:        m.Owner,
		Recipient:    m.Recipient,
		NoteID:       m.NoteID,
		Message:      subject,
		Text:         m.Body,
		RedirectType: m.ParentType,
		RedirectID:   m.ParentID,
		CreatedAt:    m.CreatedAt,
	}
	if err := d.records.InsertNotification(ctx, rec); err != nil {
		return err
	}

	delivery := Delivery{
		NotificationID: id,
		Recipient:      m.Recipient,
		From:           m.Owner,
		Subject:        subject,
		Body:           m.Body,
		NoteID:         m.NoteID,
		RedirectType:   m.ParentType,
		RedirectID:     m.ParentID,
		CreatedAt:      m.CreatedAt,
	}
	if err := d.queue.Push(ctx, delivery); err != nil {
		d.log.Warn().Err(err).
			Str("notification_id", id).
			Str("recipient", m.Recipient).
			Msg("failed to queue notification delivery")
	}
	return nil
}
