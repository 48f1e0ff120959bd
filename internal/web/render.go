package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/tryandromeda/copilot/internal/errors"
)

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes {"error": message} with the error's status.
func renderError(w http.ResponseWriter, err error) {
	cErr := errors.As(err)
	renderMessage(w, cErr.Status, cErr.Message)
}

func renderMessage(w http.ResponseWriter, status int, msg string) {
	renderJSON(w, status, map[string]any{"error": msg})
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the input is dropped by goldmark's default renderer.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}
