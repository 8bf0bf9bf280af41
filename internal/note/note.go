// Package note defines the two note representations kept in sync by notebridge.
//
// A RichNote is the feature-facing record (threads, attachments, mentions). A LegacyNote is
// a plain copy kept for older tooling. The two live in different stores and carry no
// reference to each other; they are paired heuristically by owner, title, body and
// creation time.
package note

import "strings"

// Untitled is the title stored on a legacy note when the rich note has none.
const Untitled = "Untitled"

// RichNote is the feature-facing note attached to a CRM parent document.
type RichNote struct {
	ID           string   `json:"id"`
	ParentType   string   `json:"parent_type"`
	ParentID     string   `json:"parent_id"`
	Title        string   `json:"title,omitempty"`
	Body         string   `json:"body,omitempty"`
	Owner        string   `json:"owner"`
	CreatedAt    int64    `json:"created_at"`
	UpdatedAt    int64    `json:"updated_at"`
	ParentNoteID string   `json:"parent_note_id,omitempty"`
	Attachments  []string `json:"attachments,omitempty"`
}

// IsReply reports whether the note belongs to another note's thread.
func (n *RichNote) IsReply() bool {
	return n.ParentNoteID != ""
}

// LegacyNote is the plain paired note. It has no link back to its RichNote.
type LegacyNote struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Owner     string `json:"owner"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Kind classifies a notification record.
type Kind string

const (
	KindMention Kind = "Mention"
)

// Notification is a per-recipient record created when a note mentions a user.
// NoteID is the rich note the record depends on; deleting the note deletes it.
type Notification struct {
	ID           string `json:"id"`
	Kind         Kind   `json:"kind"`
	Owner        string `json:"owner"`
	Recipient    string `json:"recipient"`
	NoteID       string `json:"note_id"`
	Message      string `json:"message"`
	Text         string `json:"text"`
	RedirectType string `json:"redirect_type"`
	RedirectID   string `json:"redirect_id"`
	Read         bool   `json:"read"`
	CreatedAt    int64  `json:"created_at"`
}

// Parent is a registered CRM document that notes can be attached to.
type Parent struct {
	Type  string `json:"parent_type"`
	ID    string `json:"parent_id"`
	Title string `json:"title"`
}

// TitleOrUntitled returns the title a legacy note would carry for the given rich title.
func TitleOrUntitled(title string) string {
	if title == "" {
		return Untitled
	}
	return title
}

// HasContent reports whether at least one of title or body is non-blank.
func HasContent(title, body string) bool {
	return strings.TrimSpace(title) != "" || strings.TrimSpace(body) != ""
}

// MergeAttachments appends incoming file names to existing, skipping names already
// present (in either list). Order is preserved; blank names are dropped.
func MergeAttachments(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	result := make([]string, 0, len(existing)+len(incoming))
	for _, name := range existing {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	for _, name := range incoming {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		result = append(result, name)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
