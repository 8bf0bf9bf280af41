package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/ops"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	notes    *ops.Notes
	renderer *Renderer
	log      zerolog.Logger
}

// createRequest is the body of POST /api/notes.
type createRequest struct {
	ParentType   string   `json:"parent_type"`
	ParentID     string   `json:"parent_id"`
	Title        string   `json:"title"`
	Body         string   `json:"body"`
	ParentNoteID string   `json:"parent_note_id"`
	Attachments  []string `json:"attachments"`
}

// updateRequest is the body of PATCH /api/notes/{id}.
// Note is a body string or a {title, body} object.
type updateRequest struct {
	Note        json.RawMessage `json:"note"`
	ParentType  string          `json:"parent_type"`
	ParentID    string          `json:"parent_id"`
	Attachments []string        `json:"attachments"`
}

// actor reads the caller identity from the request.
func actor(r *http.Request) ops.Actor {
	return ops.Actor{User: strings.TrimSpace(r.Header.Get(UserHeader))}
}

// decodeJSON decodes a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return errors.NewInvalidRequest("request body is required")
		}
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// HandleCreate handles POST /api/notes.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}

	out, err := h.notes.Create(r.Context(), actor(r), ops.CreateInput{
		ParentType:   req.ParentType,
		ParentID:     req.ParentID,
		Title:        req.Title,
		Body:         req.Body,
		ParentNoteID: req.ParentNoteID,
		Attachments:  req.Attachments,
	})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}

	status := http.StatusCreated
	if out.Duplicate {
		status = http.StatusOK
	}
	renderJSON(w, status, out)
}

// HandleGet handles GET /api/notes/{id}.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	rn, err := h.notes.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rn)
}

// HandleUpdate handles PATCH /api/notes/{id}.
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	payload, err := ops.ParseUpdatePayload(req.Note)
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}

	rn, err := h.notes.Update(r.Context(), actor(r), ops.UpdateInput{
		ParentType:  req.ParentType,
		ParentID:    req.ParentID,
		NoteID:      r.PathValue("id"),
		Payload:     payload,
		Attachments: req.Attachments,
	})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, rn)
}

// HandleDelete handles DELETE /api/notes/{id}.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	out, err := h.notes.Delete(r.Context(), actor(r), ops.DeleteInput{NoteID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDeleteAttachment handles DELETE /api/attachments/{name}?note_id=.
func (h *Handlers) HandleDeleteAttachment(w http.ResponseWriter, r *http.Request) {
	out, err := h.notes.DeleteAttachment(r.Context(), actor(r), ops.DeleteAttachmentInput{
		FileName: r.PathValue("name"),
		NoteID:   r.URL.Query().Get("note_id"),
	})
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleList handles GET /api/parents/{type}/{id}/notes.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.notes.List(r.Context(), r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		h.renderer.renderAPIError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleTimeline handles GET /parents/{type}/{id}.
func (h *Handlers) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	out, err := h.notes.List(r.Context(), r.PathValue("type"), r.PathValue("id"))
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "timeline", TimelinePageData{
		PageData: PageData{
			Title:   fmt.Sprintf("%s %s", out.ParentType, out.ParentTitle),
			Version: h.renderer.version,
		},
		List: out,
	})
}
