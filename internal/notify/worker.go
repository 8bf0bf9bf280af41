package notify

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Sink delivers a notification to its recipient.
type Sink interface {
	Deliver(ctx context.Context, d Delivery) error
}

// LogSink writes each delivery to the log.
type LogSink struct {
	Log zerolog.Logger
}

// Deliver logs d.
func (s LogSink) Deliver(_ context.Context, d Delivery) error {
	s.Log.Info().
		Str("recipient", d.Recipient).
		Str("from", d.From).
		Str("note_id", d.NoteID).
		Str("redirect", d.RedirectType+"/"+d.RedirectID).
		Msg(d.Subject)
	return nil
}

// Source yields queued deliveries.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (*Delivery, error)
}

// Worker drains a Source into a Sink until its context is cancelled.
type Worker struct {
	source      Source
	sink        Sink
	log         zerolog.Logger
	PollTimeout time.Duration
}

// NewWorker creates a Worker with a one second poll timeout.
func NewWorker(source Source, sink Sink, log zerolog.Logger) *Worker {
	return &Worker{source: source, sink: sink, log: log, PollTimeout: time.Second}
}

// Run processes deliveries until ctx is done. It returns nil on cancellation.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Msg("notification worker started")
	for {
		if ctx.Err() != nil {
			w.log.Info().Msg("notification worker stopped")
			return nil
		}
		if _, err := w.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			w.log.Error().Err(err).Msg("notification worker poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(w.PollTimeout):
			}
		}
	}
}

// RunOnce waits for at most one delivery and hands it to the sink. It reports whether a
// delivery was processed. Sink failures are logged and the delivery is dropped.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	d, err := w.source.Pop(ctx, w.PollTimeout)
	if err != nil {
		return false, err
	}
	if d == nil {
		return false, nil
	}
	if err := w.sink.Deliver(ctx, *d); err != nil {
		w.log.Warn().Err(err).
			Str("notification_id", d.NotificationID).
			Str("recipient", d.Recipient).
			Msg("notification delivery failed")
	}
	return true, nil
}
