package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	notes *ops.Notes
	actor ops.Actor
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(notes *ops.Notes, actor ops.Actor) *Handlers {
	return &Handlers{notes: notes, actor: actor}
}

// Request types for each tool

// CreateRequest represents the arguments for note_create.
type CreateRequest struct {
	ParentType   string   `json:"parent_type"`
	ParentID     string   `json:"parent_id,omitempty"`
	Title        string   `json:"title,omitempty"`
	Body         string   `json:"body,omitempty"`
	ParentNoteID string   `json:"parent_note_id,omitempty"`
	Attachments  []string `json:"attachments,omitempty"`
}

// UpdateRequest represents the arguments for note_update.
// Note is a body string or a {title, body} object.
type UpdateRequest struct {
	NoteID      string          `json:"note_id"`
	Note        json.RawMessage `json:"note"`
	ParentType  string          `json:"parent_type,omitempty"`
	ParentID    string          `json:"parent_id,omitempty"`
	Attachments []string        `json:"attachments,omitempty"`
}

// DeleteRequest represents the arguments for note_delete.
// Note is an id string or an object carrying the id.
type DeleteRequest struct {
	Note json.RawMessage `json:"note"`
}

// DeleteAttachmentRequest represents the arguments for note_delete_attachment.
type DeleteAttachmentRequest struct {
	FileName string `json:"file_name"`
	NoteID   string `json:"note_id,omitempty"`
}

// GetRequest represents the arguments for note_get.
type GetRequest struct {
	ID string `json:"id"`
}

// ListRequest represents the arguments for note_list.
type ListRequest struct {
	ParentType string `json:"parent_type"`
	ParentID   string `json:"parent_id,omitempty"`
}

// CopyRequest represents the arguments for note_copy.
type CopyRequest struct {
	FromType string `json:"from_type"`
	FromID   string `json:"from_id"`
	ToType   string `json:"to_type"`
	ToID     string `json:"to_id"`
}

// Handler implementations

// HandleCreate handles the note_create tool call.
func (h *Handlers) HandleCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.notes.Create(ctx, h.actor, ops.CreateInput{
		ParentType:   input.ParentType,
		ParentID:     input.ParentID,
		Title:        input.Title,
		Body:         input.Body,
		ParentNoteID: input.ParentNoteID,
		Attachments:  input.Attachments,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleUpdate handles the note_update tool call.
func (h *Handlers) HandleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UpdateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	payload, err := ops.ParseUpdatePayload(input.Note)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.notes.Update(ctx, h.actor, ops.UpdateInput{
		ParentType:  input.ParentType,
		ParentID:    input.ParentID,
		NoteID:      input.NoteID,
		Payload:     payload,
		Attachments: input.Attachments,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDelete handles the note_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	id, err := ops.ParseDeleteTarget(input.Note)
	if err != nil {
		return errorResult(err), nil
	}

	result, err := h.notes.Delete(ctx, h.actor, ops.DeleteInput{NoteID: id})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleDeleteAttachment handles the note_delete_attachment tool call.
func (h *Handlers) HandleDeleteAttachment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteAttachmentRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.notes.DeleteAttachment(ctx, h.actor, ops.DeleteAttachmentInput{
		FileName: input.FileName,
		NoteID:   input.NoteID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleGet handles the note_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.notes.Get(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleList handles the note_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.notes.List(ctx, input.ParentType, input.ParentID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleCopy handles the note_copy tool call.
func (h *Handlers) HandleCopy(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CopyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.notes.Copy(ctx, h.actor, ops.CopyInput{
		FromType: input.FromType,
		FromID:   input.FromID,
		ToType:   input.ToType,
		ToID:     input.ToID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL and UNEXPECTED errors never expose their cause or details.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if nErr, ok := errors.As(err); ok {
		message := nErr.Message
		if wrapped := err.Error(); err != error(nErr) {
			message = wrapped
		}
		if nErr.Code == errors.ErrInternal {
			message = "an internal error occurred"
		}
		errorObj := map[string]any{
			"code":    nErr.Code,
			"message": message,
			"status":  nErr.Status,
		}
		if nErr.Code != errors.ErrInternal && nErr.Code != errors.ErrUnexpected && nErr.Details != nil {
			errorObj["details"] = nErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
