package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/render"
	"github.com/google/uuid"
)

// JobStatus represents the state of a render job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusRendering  JobStatus = "rendering"
	StatusPublishing JobStatus = "publishing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	// StatusPartial means the document rendered but its labels were not published.
	StatusPartial JobStatus = "partial"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// Job tracks the state of a single document render.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status   JobStatus `json:"status"`
	Phase    string    `json:"phase"`
	Filename string    `json:"filename"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	fileData []byte
	options  render.Options
	html     string
	labels   []labels.Entry
	errors   []string
}

// Progress summarizes what the render produced.
type Progress struct {
	Labels     int      `json:"labels"`
	Footnotes  int      `json:"footnotes"`
	IndexTerms int      `json:"index_terms"`
	Unresolved []string `json:"unresolved"`
	Errors     []string `json:"errors"`
}

// NewJob returns a queued job for the given source document.
func NewJob(filename string, data []byte, opts render.Options) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Status:    StatusQueued,
		Phase:     "queued",
		Filename:  filename,
		CreatedAt: now,
		UpdatedAt: now,
		fileData:  data,
		options:   opts,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// LatestLabels returns the labels of the most recently finished successful
// job that rendered filename.
func (s *JobStore) LatestLabels(filename string) ([]labels.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Job
	var bestAt time.Time
	for _, job := range s.jobs {
		job.mu.Lock()
		ok := job.Filename == filename && (job.Status == StatusCompleted || job.Status == StatusPartial)
		at := job.UpdatedAt
		job.mu.Unlock()
		if ok && (best == nil || at.After(bestAt)) {
			best, bestAt = job, at
		}
	}
	if best == nil {
		return nil, false
	}
	best.mu.Lock()
	defer best.mu.Unlock()
	return best.labels, true
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult stores a finished render. The raw source is released.
func (j *Job) SetResult(res *render.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.html = res.HTML
	j.labels = res.Labels.Entries()
	j.ContentHash = ContentHashHex([]byte(res.HTML))
	j.fileData = nil
	j.Progress.Labels = res.Labels.Len()
	j.Progress.Footnotes = res.Footnotes
	j.Progress.IndexTerms = res.IndexTerms
	j.Progress.Unresolved = res.Unresolved
	j.UpdatedAt = time.Now()
}

// Result returns the rendered document and its content hash. ok is false
// until the render has finished.
func (j *Job) Result() (html, hash string, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.html, j.ContentHash, j.ContentHash != ""
}

// Labels returns the label table of the rendered document.
func (j *Job) Labels() []labels.Entry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.labels
}

// SetFileData sets the raw file bytes for processing.
func (j *Job) SetFileData(data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.fileData = data
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Options returns the render options the job was submitted with.
func (j *Job) Options() render.Options {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.options
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string    `json:"job_id"`
	Status      JobStatus `json:"status"`
	Phase       string    `json:"phase"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash,omitempty"`
	Progress    Progress  `json:"progress"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	unresolved := j.Progress.Unresolved
	if unresolved == nil {
		unresolved = []string{}
	}
	return JobSnapshot{
		ID:          j.ID,
		Status:      j.Status,
		Phase:       j.Phase,
		Filename:    j.Filename,
		ContentHash: j.ContentHash,
		Progress: Progress{
			Labels:     j.Progress.Labels,
			Footnotes:  j.Progress.Footnotes,
			IndexTerms: j.Progress.IndexTerms,
			Unresolved: unresolved,
			Errors:     errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
