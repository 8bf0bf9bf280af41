package ops

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hpungsan/notebridge/internal/errors"
)

func TestParseDeleteTarget(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "bare id", raw: `"N-1"`, want: "N-1"},
		{name: "trimmed", raw: `"  N-1 "`, want: "N-1"},
		{name: "name key", raw: `{"name":"N-1"}`, want: "N-1"},
		{name: "crm_note key", raw: `{"crm_note":"N-2"}`, want: "N-2"},
		{name: "note_name key", raw: `{"note_name":"N-3"}`, want: "N-3"},
		{name: "name wins", raw: `{"note_name":"N-3","name":"N-1"}`, want: "N-1"},
		{name: "skips blank keys", raw: `{"name":"","crm_note":"N-2"}`, want: "N-2"},
		{name: "empty string", raw: `""`, wantErr: true},
		{name: "empty object", raw: `{}`, wantErr: true},
		{name: "null", raw: `null`, wantErr: true},
		{name: "number", raw: `7`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDeleteTarget(json.RawMessage(tt.raw))
			if tt.wantErr {
				if !errors.Is(err, errors.ErrInvalidRequest) {
					t.Errorf("error = %v, want INVALID_REQUEST", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDeleteTarget failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// thread creates a root note with two replies, each with attachments and a mention.
func thread(t *testing.T, e *env) (root string, replies []string) {
	t.Helper()
	for _, f := range []string{"root.pdf", "r1.png", "r2.txt"} {
		e.putFile(t, f)
	}
	r := e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Title: "Kickoff", Body: "agenda @bob@example.com", Attachments: []string{"root.pdf"}})
	r1 := e.create(t, bob, CreateInput{ParentNoteID: r.RichID, Body: "first reply @jane@example.com", Attachments: []string{"r1.png"}})
	r2 := e.create(t, jane, CreateInput{ParentNoteID: r.RichID, Body: "second reply @bob@example.com", Attachments: []string{"r2.txt"}})
	return r.RichID, []string{r1.RichID, r2.RichID}
}

func TestDelete_CascadesThread(t *testing.T) {
	e := newEnv(t, withDispatcher())
	ctx := context.Background()
	root, replies := thread(t, e)

	if e.legacyCount(t) != 3 {
		t.Fatalf("legacy count = %d, want 3", e.legacyCount(t))
	}
	for _, id := range append([]string{root}, replies...) {
		if c, _ := e.rich.CountNotificationsForNote(ctx, id); c != 1 {
			t.Fatalf("notifications for %s = %d, want 1", id, c)
		}
	}

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: root})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if out.Status != "deleted" || out.ID != root {
		t.Errorf("out = %+v", out)
	}
	if len(out.DeletedNotes) != 3 || out.DeletedNotes[2] != root {
		t.Errorf("DeletedNotes = %v, want replies then root", out.DeletedNotes)
	}
	if len(out.LegacyNotes) != 3 {
		t.Errorf("LegacyNotes = %v, want 3", out.LegacyNotes)
	}
	if len(out.Attachments.Deleted) != 3 {
		t.Errorf("Attachments = %+v, want 3 deleted", out.Attachments)
	}

	for _, id := range append([]string{root}, replies...) {
		if exists, _ := e.rich.NoteExists(ctx, id); exists {
			t.Errorf("rich note %s still exists", id)
		}
		if c, _ := e.rich.CountNotificationsForNote(ctx, id); c != 0 {
			t.Errorf("notifications for %s = %d, want 0", id, c)
		}
	}
	if e.legacyCount(t) != 0 {
		t.Errorf("legacy count = %d, want 0", e.legacyCount(t))
	}
	for _, f := range []string{"root.pdf", "r1.png", "r2.txt"} {
		if e.fileExists(f) {
			t.Errorf("file %s still exists", f)
		}
	}
}

func TestDelete_AttachmentFailuresDoNotAbort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root, _ := thread(t, e)
	e.flakyFiles.fail["r1.png"] = true

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: root})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(out.Attachments.Failed) != 1 || out.Attachments.Failed[0] != "r1.png" {
		t.Errorf("Failed = %v, want [r1.png]", out.Attachments.Failed)
	}
	if e.fileExists("root.pdf") || e.fileExists("r2.txt") {
		t.Error("other attachments should still be deleted")
	}
}

func TestDelete_MissingAttachmentFileIsFine(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Body: "x", Attachments: []string{"gone.pdf"}})

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: created.RichID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(out.Attachments.Missing) != 1 {
		t.Errorf("Missing = %v, want [gone.pdf]", out.Attachments.Missing)
	}
}

func TestDelete_ReplyOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root, replies := thread(t, e)

	if _, err := e.notes.Delete(ctx, bob, DeleteInput{NoteID: replies[0]}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if exists, _ := e.rich.NoteExists(ctx, root); !exists {
		t.Error("root should survive deleting a reply")
	}
	if exists, _ := e.rich.NoteExists(ctx, replies[1]); !exists {
		t.Error("sibling reply should survive")
	}
	if e.legacyCount(t) != 2 {
		t.Errorf("legacy count = %d, want 2", e.legacyCount(t))
	}
	if !e.fileExists("root.pdf") || e.fileExists("r1.png") {
		t.Error("only the reply's attachment should be deleted")
	}
}

func TestDelete_LegacyOnlyID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	other := e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Body: "keep"})
	ln, err := e.legacy.Insert(ctx, "Old", "pre-migration", jane.User, 100)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: ln.ID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if out.ID != ln.ID || len(out.DeletedNotes) != 0 {
		t.Errorf("out = %+v", out)
	}
	if exists, _ := e.legacy.Exists(ctx, ln.ID); exists {
		t.Error("legacy note should be deleted")
	}
	if e.legacyCount(t) != 1 {
		t.Errorf("legacy count = %d, want 1", e.legacyCount(t))
	}
	if exists, _ := e.rich.NoteExists(ctx, other.RichID); !exists {
		t.Error("unrelated rich note should survive")
	}
}

func TestDelete_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: " "}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("blank id error = %v, want INVALID_REQUEST", err)
	}
	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: "nope"})
	if err != nil {
		t.Fatalf("unknown id error = %v, want success", err)
	}
	if out.Status != "deleted" || out.ID != "nope" || len(out.LegacyNotes) != 0 || len(out.DeletedNotes) != 0 {
		t.Errorf("out = %+v, want a no-op delete", out)
	}
}

func TestDelete_SameLegacyIDTwice(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Body: "keep"})
	ln, err := e.legacy.Insert(ctx, "Old", "pre-migration", jane.User, 100)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	first, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: ln.ID})
	if err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if len(first.LegacyNotes) != 1 {
		t.Errorf("first LegacyNotes = %v, want [%s]", first.LegacyNotes, ln.ID)
	}

	second, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: ln.ID})
	if err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if second.Status != "deleted" || len(second.LegacyNotes) != 0 {
		t.Errorf("second out = %+v, want a no-op delete", second)
	}
	if e.legacyCount(t) != 1 {
		t.Errorf("legacy count = %d, want 1", e.legacyCount(t))
	}
}

func TestDelete_PermissionCheckedBeforeMutation(t *testing.T) {
	e := newEnv(t, withAuthz(OwnerPolicy{}))
	ctx := context.Background()
	root, _ := thread(t, e)

	if _, err := e.notes.Delete(ctx, bob, DeleteInput{NoteID: root}); !errors.Is(err, errors.ErrPermissionDenied) {
		t.Fatalf("error = %v, want PERMISSION_DENIED", err)
	}
	if exists, _ := e.rich.NoteExists(ctx, root); !exists {
		t.Error("root should not be deleted")
	}
	if e.legacyCount(t) != 3 {
		t.Errorf("legacy count = %d, want 3", e.legacyCount(t))
	}
	if !e.fileExists("root.pdf") {
		t.Error("attachments should be untouched")
	}
}

func TestDelete_ReplyFailureKeepsRoot(t *testing.T) {
	e := newEnv(t, withDispatcher())
	ctx := context.Background()
	root, replies := thread(t, e)
	e.flakyRich.deleteErr[replies[0]] = errBoom

	_, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: root})
	if !errors.Is(err, errors.ErrUnexpected) {
		t.Fatalf("error = %v, want UNEXPECTED", err)
	}
	if nErr, _ := errors.As(err); nErr != nil && nErr.Details != nil {
		t.Errorf("UNEXPECTED must not carry details: %+v", nErr.Details)
	}

	rootNote, err := e.rich.GetNote(ctx, root)
	if err != nil {
		t.Fatalf("root should survive a failed reply delete: %v", err)
	}
	if exists, _ := e.rich.NoteExists(ctx, replies[0]); !exists {
		t.Error("failed reply should still exist")
	}
	if exists, _ := e.rich.NoteExists(ctx, replies[1]); exists {
		t.Error("other reply should still be deleted")
	}
	if c, _ := e.rich.CountNotificationsForNote(ctx, root); c != 1 {
		t.Errorf("root notifications = %d, want 1", c)
	}
	if _, ok, err := e.notes.findLegacyFor(ctx, rootNote); err != nil || !ok {
		t.Errorf("root legacy note should be kept: ok=%v err=%v", ok, err)
	}
	if !e.fileExists("root.pdf") || !e.fileExists("r1.png") {
		t.Error("attachments of surviving notes should be kept")
	}
	if e.fileExists("r2.txt") {
		t.Error("attachment of the deleted reply should be removed")
	}

	// Retrying once the store recovers finishes the thread.
	delete(e.flakyRich.deleteErr, replies[0])
	if _, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: root}); err != nil {
		t.Fatalf("retry Delete failed: %v", err)
	}
	if exists, _ := e.rich.NoteExists(ctx, root); exists {
		t.Error("root should be deleted on retry")
	}
	if e.legacyCount(t) != 0 {
		t.Errorf("legacy count = %d, want 0", e.legacyCount(t))
	}
}

func TestDelete_LegacyFailuresAreBestEffort(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Body: "x"})
	e.flakyLegacy.deleteErr = errBoom

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: created.RichID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(out.LegacyNotes) != 0 {
		t.Errorf("LegacyNotes = %v, want none", out.LegacyNotes)
	}
	if exists, _ := e.rich.NoteExists(ctx, created.RichID); exists {
		t.Error("rich note should be deleted")
	}
}

func TestDelete_UsesCurrentValuesForMatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	created := e.create(t, jane, CreateInput{ParentType: "Lead", ParentID: "L1", Title: "Call", Body: "x"})
	if _, err := e.notes.Update(ctx, jane, UpdateInput{NoteID: created.RichID, Payload: BodyOnly("edited")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	out, err := e.notes.Delete(ctx, jane, DeleteInput{NoteID: created.RichID})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(out.LegacyNotes) != 1 || out.LegacyNotes[0] != created.LegacyID {
		t.Errorf("LegacyNotes = %v, want [%s]", out.LegacyNotes, created.LegacyID)
	}
}
