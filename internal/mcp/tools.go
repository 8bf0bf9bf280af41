package mcp

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

var createToolDef = mcp.NewTool("note_create",
	mcp.WithDescription("Create a note on a CRM document. Writes the rich note and a legacy copy. "+
		"Submitting the same note twice within a minute returns the first note."),
	mcp.WithString("parent_type", mcp.Required(), mcp.Description("Document type the note is attached to, e.g. Lead")),
	mcp.WithString("parent_id", mcp.Description("Document id the note is attached to")),
	mcp.WithString("title", mcp.Description("Note title (title or body required)")),
	mcp.WithString("body", mcp.Description("Note body, markdown; @user mentions notify that user")),
	mcp.WithString("parent_note_id", mcp.Description("Reply to this note")),
	mcp.WithArray("attachments", mcp.Description("Attachment file names"), mcp.WithStringItems()),
)

var updateToolDef = mcp.NewToolWithRawSchema("note_update",
	"Update a note's title and/or body. `note` is either a string (new body, title kept) "+
		"or an object {title?, body?}. Attachments are added by file name.",
	json.RawMessage(`{
  "type": "object",
  "properties": {
    "note_id": {"type": "string", "description": "Note to update"},
    "note": {
      "description": "New body string, or {title, body}",
      "oneOf": [
        {"type": "string"},
        {"type": "object", "properties": {"title": {"type": "string"}, "body": {"type": "string"}}}
      ]
    },
    "parent_type": {"type": "string", "description": "Optional; must match the note's parent"},
    "parent_id": {"type": "string", "description": "Optional; must match the note's parent"},
    "attachments": {"type": "array", "items": {"type": "string"}, "description": "File names to attach"}
  },
  "required": ["note_id", "note"]
}`))

var deleteToolDef = mcp.NewToolWithRawSchema("note_delete",
	"Delete a note with its replies, legacy copies, notifications and attachment files.",
	json.RawMessage(`{
  "type": "object",
  "properties": {
    "note": {
      "description": "Note id, or an object carrying it as name, crm_note or note_name",
      "oneOf": [
        {"type": "string"},
        {"type": "object", "properties": {"name": {"type": "string"}, "crm_note": {"type": "string"}, "note_name": {"type": "string"}}}
      ]
    }
  },
  "required": ["note"]
}`))

var deleteAttachmentToolDef = mcp.NewTool("note_delete_attachment",
	mcp.WithDescription("Delete an attachment file, detaching it from a note when note_id is given."),
	mcp.WithString("file_name", mcp.Required(), mcp.Description("Attachment file name")),
	mcp.WithString("note_id", mcp.Description("Note the file must be attached to")),
)

var getToolDef = mcp.NewTool("note_get",
	mcp.WithDescription("Fetch a note by id."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
)

var listToolDef = mcp.NewTool("note_list",
	mcp.WithDescription("List the note threads on a document, oldest first, with replies."),
	mcp.WithString("parent_type", mcp.Required(), mcp.Description("Document type")),
	mcp.WithString("parent_id", mcp.Description("Document id")),
)

var copyToolDef = mcp.NewTool("note_copy",
	mcp.WithDescription("Copy every note thread from one document to another (e.g. lead to opportunity)."),
	mcp.WithString("from_type", mcp.Required(), mcp.Description("Source document type")),
	mcp.WithString("from_id", mcp.Required(), mcp.Description("Source document id")),
	mcp.WithString("to_type", mcp.Required(), mcp.Description("Destination document type")),
	mcp.WithString("to_id", mcp.Required(), mcp.Description("Destination document id")),
)
