package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/hpungsan/notebridge/internal/errors"
	"github.com/hpungsan/notebridge/internal/note"
	"github.com/hpungsan/notebridge/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// TimelinePageData is the template data for a parent's note timeline.
type TimelinePageData struct {
	PageData
	List *ops.ListOutput
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	log       zerolog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, log zerolog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":   formatTime,
		"markdown":     renderMarkdown,
		"displayTitle": note.TitleOrUntitled,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"timeline": "timeline.html",
		"error":    "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		log:       log,
	}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.Error().Str("template", name).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.log.Error().Err(err).Str("template", name).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	nErr, status, message := r.publicError(err)

	if req.Header.Get("HX-Request") == "true" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderJSON(w, status, errorBody(nErr, message))
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", status),
			Version: r.version,
		},
		StatusCode: status,
		Message:    message,
	})
}

// renderAPIError always answers with a JSON error object.
func (r *Renderer) renderAPIError(w http.ResponseWriter, err error) {
	nErr, status, message := r.publicError(err)
	renderJSON(w, status, errorBody(nErr, message))
}

// publicError resolves err to the code, status and message safe to show a caller.
// INTERNAL causes are logged and replaced with a generic message.
func (r *Renderer) publicError(err error) (*errors.NoteError, int, string) {
	nErr, ok := errors.As(err)
	if !ok {
		nErr = errors.NewInternal(err)
	}
	message := nErr.Message
	if nErr.Code == errors.ErrInternal {
		r.log.Error().Err(err).Msg("request failed")
		message = "an internal error occurred"
	}
	return nErr, nErr.Status, message
}

func errorBody(nErr *errors.NoteError, message string) map[string]any {
	obj := map[string]any{
		"code":    string(nErr.Code),
		"message": message,
		"status":  nErr.Status,
	}
	if nErr.Code != errors.ErrInternal && nErr.Code != errors.ErrUnexpected && nErr.Details != nil {
		obj["details"] = nErr.Details
	}
	return map[string]any{"error": obj}
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts a note body to HTML using goldmark.
// goldmark drops raw HTML by default, so mention spans render as plain text.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}
