package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/rdhtml/internal/labelfile"
	"github.com/go-chi/chi/v5"
)

// handleLabels returns a document's label table as JSON, or as an .rbl label
// file when format=rbl.
func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	entries, ok, err := s.orchestrator.LabelsFor(r.Context(), filename)
	if err != nil {
		jsonError(w, "failed to load labels: "+err.Error(), http.StatusBadGateway)
		return
	}
	if !ok {
		jsonError(w, "no labels for "+filename, http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") == "rbl" {
		w.Header().Set("Content-Type", "application/toml")
		if err := labelfile.Write(w, labelfile.FromEntries(filename, entries)); err != nil {
			s.log.Error("write label file", "filename", filename, "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"filename": filename,
		"labels":   entries,
	})
}
