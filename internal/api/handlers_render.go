package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/rdhtml/internal/parser"
	"github.com/dgallion1/rdhtml/internal/render"
)

// UnresolvedHeader carries the number of references that did not resolve.
const UnresolvedHeader = "X-Rdhtml-Unresolved"

// handleRender renders the request body synchronously. The filename query
// parameter picks the parser.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filename := sanitizeFilename(query.Get("filename"))
	if !parser.IsSupportedExtension(filename) {
		jsonError(w, fmt.Sprintf("unsupported file type: %q", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}
	opts, err := s.renderOptions(query, filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("document exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	worker := s.orchestrator.Worker()
	doc, err := worker.Parse(filename, data)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	res, err := worker.Render(r.Context(), doc, opts)
	if err != nil {
		var re *render.Error
		if errors.As(err, &re) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]string{"error": re.Err.Error(), "path": re.Path})
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set(UnresolvedHeader, strconv.Itoa(len(res.Unresolved)))
	writeXHTML(w, res.HTML, opts.Charset)
}

func writeXHTML(w http.ResponseWriter, html, charset string) {
	ct := "application/xhtml+xml"
	if charset != "" {
		ct += "; charset=" + charset
	}
	w.Header().Set("Content-Type", ct)
	io.WriteString(w, html)
}

// renderOptions layers request parameters over the configured defaults:
// title, lang, charset, css, legacy_anchors and repeatable rel/rev given as
// rel:href.
func (s *Server) renderOptions(v url.Values, filename string) (render.Options, error) {
	opts := s.cfg.RenderOptions()
	opts.InputFilename = filename
	if t := v.Get("title"); t != "" {
		opts.Title = t
	}
	if l := v.Get("lang"); l != "" {
		opts.Lang = l
	}
	if c := v.Get("charset"); c != "" {
		opts.Charset = c
	}
	if c := v.Get("css"); c != "" {
		opts.CSS = c
	}
	if la := v.Get("legacy_anchors"); la != "" {
		b, err := strconv.ParseBool(la)
		if err != nil {
			return opts, fmt.Errorf("legacy_anchors: %w", err)
		}
		opts.LegacyAnchors = b
	}
	for _, raw := range v["rel"] {
		l, err := render.ParseLink(raw)
		if err != nil {
			return opts, err
		}
		opts.LinkRel = append(opts.LinkRel, l)
	}
	for _, raw := range v["rev"] {
		l, err := render.ParseLink(raw)
		if err != nil {
			return opts, err
		}
		opts.LinkRev = append(opts.LinkRev, l)
	}
	return opts, nil
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
