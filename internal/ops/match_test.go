package ops

import (
	"context"
	"testing"
)

func int64Ptr(v int64) *int64 { return &v }

func TestFindLegacy(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	const base = int64(10_000)

	older, err := e.legacy.Insert(ctx, "", "same", jane.User, base-30)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	newer, err := e.legacy.Insert(ctx, "", "same", jane.User, base+20)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	edge, err := e.legacy.Insert(ctx, "Edge", "b", jane.User, base+60)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if _, err := e.legacy.Insert(ctx, "Far", "b", jane.User, base+61); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	tests := []struct {
		name   string
		owner  string
		title  string
		body   string
		around *int64
		want   string
	}{
		{"latest in window wins", jane.User, "", "same", int64Ptr(base), newer.ID},
		{"empty title matches Untitled", jane.User, "Untitled", "same", int64Ptr(base), newer.ID},
		{"window narrows the pick", jane.User, "", "same", int64Ptr(base - 60), older.ID},
		{"no window searches everything", jane.User, "", "same", nil, newer.ID},
		{"upper bound inclusive", jane.User, "Edge", "b", int64Ptr(base), edge.ID},
		{"outside window", jane.User, "Far", "b", int64Ptr(base), ""},
		{"other owner", bob.User, "", "same", int64Ptr(base), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := e.notes.FindLegacy(ctx, tt.owner, tt.title, tt.body, tt.around)
			if err != nil {
				t.Fatalf("FindLegacy failed: %v", err)
			}
			if tt.want == "" {
				if ok {
					t.Errorf("got %s, want no match", id)
				}
				return
			}
			if !ok || id != tt.want {
				t.Errorf("got %q (ok=%v), want %q", id, ok, tt.want)
			}
		})
	}
}

func TestFindLegacy_ConfiguredWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ln, err := e.legacy.Insert(ctx, "T", "b", jane.User, 1000)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	narrow := New(Deps{Rich: e.rich, Legacy: e.legacy, MatchWindow: 5})
	if _, ok, _ := narrow.FindLegacy(ctx, jane.User, "T", "b", int64Ptr(1010)); ok {
		t.Error("5s window should not reach 10s away")
	}
	if id, ok, _ := narrow.FindLegacy(ctx, jane.User, "T", "b", int64Ptr(1005)); !ok || id != ln.ID {
		t.Errorf("5s window should match at its edge, got %q %v", id, ok)
	}
}
