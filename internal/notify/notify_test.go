package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/db"
	"github.com/hpungsan/notebridge/internal/note"
)

func setupTestQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	q, err := NewRedisQueue("redis://"+s.Addr(), "test:notifications")
	if err != nil {
		t.Fatalf("NewRedisQueue failed: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q, s
}

func setupTestStore(t *testing.T) *db.Store {
	t.Helper()
	sqlDB, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	return db.NewStore(sqlDB)
}

type recordingSink struct {
	mu        sync.Mutex
	delivered []Delivery
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, d Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = append(s.delivered, d)
	return s.err
}

type failingQueue struct{}

func (failingQueue) Push(context.Context, Delivery) error { return errors.New("queue down") }

type failingRecorder struct{}

func (failingRecorder) InsertNotification(context.Context, *note.Notification) error {
	return errors.New("store down")
}

func TestNewRedisQueue_BadURL(t *testing.T) {
	if _, err := NewRedisQueue("not a url", "k"); err == nil {
		t.Error("expected error for invalid url")
	}
}

func TestRedisQueue_PushPopFIFO(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	for _, r := range []string{"alice", "bob"} {
		if err := q.Push(ctx, Delivery{Recipient: r, Subject: "hi " + r}); err != nil {
			t.Fatalf("Push failed: %v", err)
		}
	}
	n, err := q.Len(ctx)
	if err != nil || n != 2 {
		t.Fatalf("Len = %d, %v; want 2", n, err)
	}

	first, err := q.Pop(ctx, time.Second)
	if err != nil || first == nil {
		t.Fatalf("Pop = %v, %v", first, err)
	}
	if first.Recipient != "alice" || first.Subject != "hi alice" {
		t.Errorf("first = %+v, want alice", first)
	}
	second, err := q.Pop(ctx, time.Second)
	if err != nil || second == nil || second.Recipient != "bob" {
		t.Errorf("second = %+v, %v; want bob", second, err)
	}
}

func TestRedisQueue_UsesConfiguredKey(t *testing.T) {
	q, s := setupTestQueue(t)
	if err := q.Push(context.Background(), Delivery{Recipient: "alice"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	items, err := s.List("test:notifications")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1", len(items))
	}
}

func TestMentionSubject(t *testing.T) {
	m := Mention{Owner: "jane@example.com", ParentType: "Lead", ParentTitle: "Acme Corp"}
	want := "jane@example.com mentioned you in a Note in Lead Acme Corp"
	if got := m.Subject(); got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestDispatcher_RecordsAndQueues(t *testing.T) {
	store := setupTestStore(t)
	q, _ := setupTestQueue(t)
	ctx := context.Background()

	d := NewDispatcher(store, q, zerolog.Nop())
	err := d.Notify(ctx, Mention{
		Owner:       "jane@example.com",
		Recipient:   "bob@example.com",
		NoteID:      "note-1",
		ParentType:  "Lead",
		ParentID:    "LEAD-1",
		ParentTitle: "Acme Corp",
		Body:        "hi @bob@example.com",
		CreatedAt:   1000,
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}

	recs, err := store.ListNotifications(ctx, "bob@example.com")
	if err != nil {
		t.Fatalf("ListNotifications failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.Kind != note.KindMention || rec.NoteID != "note-1" || rec.RedirectType != "Lead" || rec.RedirectID != "LEAD-1" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Read {
		t.Error("new notification should be unread")
	}

	delivery, err := q.Pop(ctx, time.Second)
	if err != nil || delivery == nil {
		t.Fatalf("Pop = %v, %v", delivery, err)
	}
	if delivery.NotificationID != rec.ID {
		t.Errorf("delivery id = %q, want %q", delivery.NotificationID, rec.ID)
	}
	if delivery.Subject != "jane@example.com mentioned you in a Note in Lead Acme Corp" {
		t.Errorf("subject = %q", delivery.Subject)
	}
}

func TestDispatcher_QueueFailureIsNotAnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	d := NewDispatcher(store, failingQueue{}, zerolog.Nop())
	if err := d.Notify(ctx, Mention{Owner: "a", Recipient: "b", NoteID: "n1", CreatedAt: 1}); err != nil {
		t.Fatalf("Notify should not fail on queue error: %v", err)
	}
	count, err := store.CountNotificationsForNote(ctx, "n1")
	if err != nil || count != 1 {
		t.Errorf("count = %d, %v; want 1", count, err)
	}
}

func TestDispatcher_RecordFailureIsReturned(t *testing.T) {
	d := NewDispatcher(failingRecorder{}, NewLogQueue(zerolog.Nop()), zerolog.Nop())
	if err := d.Notify(context.Background(), Mention{Recipient: "b"}); err == nil {
		t.Error("expected error when the record cannot be stored")
	}
}

func TestWorker_RunOnce(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	sink := &recordingSink{}

	w := NewWorker(q, sink, zerolog.Nop())
	w.PollTimeout = 100 * time.Millisecond

	if err := q.Push(ctx, Delivery{Recipient: "alice", Subject: "s"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	processed, err := w.RunOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("RunOnce = %v, %v; want true", processed, err)
	}
	if len(sink.delivered) != 1 || sink.delivered[0].Recipient != "alice" {
		t.Errorf("delivered = %+v", sink.delivered)
	}
}

func TestWorker_SinkFailureDropsDelivery(t *testing.T) {
	q, _ := setupTestQueue(t)
	ctx := context.Background()
	sink := &recordingSink{err: errors.New("smtp down")}

	w := NewWorker(q, sink, zerolog.Nop())
	if err := q.Push(ctx, Delivery{Recipient: "alice"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	processed, err := w.RunOnce(ctx)
	if err != nil || !processed {
		t.Fatalf("RunOnce = %v, %v; want true", processed, err)
	}
	n, _ := q.Len(ctx)
	if n != 0 {
		t.Errorf("queue len = %d, want 0", n)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	q, _ := setupTestQueue(t)
	sink := &recordingSink{}
	w := NewWorker(q, sink, zerolog.Nop())
	w.PollTimeout = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	if err := q.Push(ctx, Delivery{Recipient: "alice"}); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		sink.mu.Lock()
		n := len(sink.delivered)
		sink.mu.Unlock()
		if n == 1 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
	if len(sink.delivered) != 1 {
		t.Errorf("delivered = %d, want 1", len(sink.delivered))
	}
}

func TestLogQueue_Push(t *testing.T) {
	if err := NewLogQueue(zerolog.Nop()).Push(context.Background(), Delivery{}); err != nil {
		t.Errorf("LogQueue.Push = %v", err)
	}
}
