package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/rdhtml/internal/config"
	"github.com/dgallion1/rdhtml/internal/labels"
)

// Orchestrator manages the document render pipeline.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	store  LabelStore
	local  labels.External
	stats  *RenderStats
	log    *slog.Logger
	cfg    config.Config
	worker *Worker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. store and local may be nil.
func NewOrchestrator(cfg config.Config, store LabelStore, local labels.External, log *slog.Logger) *Orchestrator {
	stats := NewRenderStats(cfg.StatsWindow)
	return &Orchestrator{
		jobs:   NewJobStore(cfg.JobTTL),
		queue:  make(chan *Job, cfg.MaxQueueSize),
		store:  store,
		local:  local,
		stats:  stats,
		log:    log,
		cfg:    cfg,
		worker: NewWorker(store, local, stats, log, cfg.PDFFallbackPdftotext),
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					o.worker.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Worker returns the worker used for synchronous renders.
func (o *Orchestrator) Worker() *Worker {
	return o.worker
}

// Stats returns the render latency tracker.
func (o *Orchestrator) Stats() *RenderStats {
	return o.stats
}

// LabelsFor returns the label table of filename: from the latest job that
// rendered it, else from the label store.
func (o *Orchestrator) LabelsFor(ctx context.Context, filename string) ([]labels.Entry, bool, error) {
	if entries, ok := o.jobs.LatestLabels(filename); ok {
		return entries, true, nil
	}
	if o.store == nil {
		return nil, false, nil
	}
	m, err := o.store.Prefetch(ctx, []string{filename})
	if err != nil {
		return nil, false, err
	}
	tab, ok := m[filename]
	if !ok {
		return nil, false, nil
	}
	entries := make([]labels.Entry, 0, len(tab))
	for label, anchor := range tab {
		entries = append(entries, labels.Entry{Label: label, Anchor: anchor})
	}
	slices.SortFunc(entries, func(a, b labels.Entry) int { return strings.Compare(a.Label, b.Label) })
	return entries, true, nil
}
