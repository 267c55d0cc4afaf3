package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/rdhtml/internal/parser"
	"github.com/dgallion1/rdhtml/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}

	job, status, err := s.jobFromUpload(r, files[0])
	if err != nil {
		jsonError(w, err.Error(), status)
		return
	}
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(jobAccepted(job))
}

func (s *Server) handleBatchSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	results := make([]map[string]any, 0, len(files))
	for _, fh := range files {
		job, _, err := s.jobFromUpload(r, fh)
		if err == nil {
			err = s.orchestrator.Submit(job)
		}
		if err != nil {
			results = append(results, map[string]any{
				"filename": sanitizeFilename(fh.Filename),
				"error":    err.Error(),
			})
			continue
		}
		results = append(results, jobAccepted(job))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

// jobFromUpload reads one uploaded file into a queued job. On failure it
// also returns the HTTP status to answer with.
func (s *Server) jobFromUpload(r *http.Request, fh *multipart.FileHeader) (*pipeline.Job, int, error) {
	filename := sanitizeFilename(fh.Filename)
	if !parser.IsSupportedExtension(filename) {
		return nil, http.StatusBadRequest, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
	}
	opts, err := s.renderOptions(r.Form, filename)
	if err != nil {
		return nil, http.StatusBadRequest, err
	}

	f, err := fh.Open()
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to open file")
	}
	data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
	f.Close()
	if err != nil {
		return nil, http.StatusInternalServerError, fmt.Errorf("failed to read file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes)
	}
	return pipeline.NewJob(filename, data, opts), 0, nil
}

func jobAccepted(job *pipeline.Job) map[string]any {
	snap := job.Snapshot()
	return map[string]any{
		"filename":   snap.Filename,
		"job_id":     snap.ID,
		"status":     snap.Status,
		"poll_url":   fmt.Sprintf("/api/jobs/%s/status", snap.ID),
		"result_url": fmt.Sprintf("/api/jobs/%s/result", snap.ID),
	}
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

// handleJobResult serves the rendered page of a finished job. The content
// hash doubles as its ETag.
func (s *Server) handleJobResult(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	snap := job.Snapshot()
	html, hash, ok := job.Result()
	switch {
	case snap.Status == pipeline.StatusFailed:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{"status": snap.Status, "errors": snap.Progress.Errors})
		return
	case !ok:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]any{"status": snap.Status, "error": "job not finished"})
		return
	}

	etag := `"` + hash + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set(UnresolvedHeader, fmt.Sprint(len(snap.Progress.Unresolved)))
	writeXHTML(w, html, job.Options().Charset)
}
