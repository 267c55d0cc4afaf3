package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgallion1/rdhtml/internal/doctree"
	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/parser"
	"github.com/dgallion1/rdhtml/internal/render"
)

// LabelStore shares label tables between documents. *labelstore.Client
// implements it.
type LabelStore interface {
	Prefetch(ctx context.Context, filenames []string) (labels.Map, error)
	Put(ctx context.Context, filename string, entries []labels.Entry) error
}

// Worker parses and renders documents.
type Worker struct {
	store       LabelStore     // may be nil
	local       labels.External // may be nil
	stats       *RenderStats
	log         *slog.Logger
	pdfFallback bool
	backoff     func(int) time.Duration
}

func NewWorker(store LabelStore, local labels.External, stats *RenderStats, log *slog.Logger, pdfFallback bool) *Worker {
	return &Worker{
		store:       store,
		local:       local,
		stats:       stats,
		log:         log,
		pdfFallback: pdfFallback,
		backoff:     Backoff,
	}
}

// ParseError wraps failures before rendering starts: unsupported formats and
// unreadable input.
type ParseError struct {
	Filename string
	Err      error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse %s: %v", e.Filename, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// Parse builds the document tree for data using the parser for filename.
func (w *Worker) Parse(filename string, data []byte) (*doctree.Document, error) {
	p, err := parser.ForFile(filename)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	if pp, ok := p.(*parser.PDFParser); ok {
		pp.FallbackPdftotext = w.pdfFallback
	}
	doc, err := p.Parse(bytes.NewReader(data), filename)
	if err != nil {
		return nil, &ParseError{Filename: filename, Err: err}
	}
	return doc, nil
}

// Render renders doc, resolving references into other documents through the
// local label directory first and the label store second.
func (w *Worker) Render(ctx context.Context, doc *doctree.Document, opts render.Options) (*render.Result, error) {
	ext := labels.Chain{w.local}
	if files := referencedFiles(doc); len(files) > 0 && w.store != nil {
		var fetched labels.Map
		err := retry(ctx, w.log, "prefetch", w.backoff, func() error {
			var err error
			fetched, err = w.store.Prefetch(ctx, files)
			return err
		})
		if err != nil {
			// References into those files degrade to plain file links.
			w.log.Warn("label prefetch failed", "files", files, "error", err)
		} else {
			ext = append(ext, fetched)
		}
	}

	start := time.Now()
	res, err := render.New(opts, ext, w.log).Render(doc)
	if w.stats != nil {
		w.stats.Record(time.Since(start), err != nil)
	}
	return res, err
}

// Process runs the full render pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusParsing, "parsing")
	doc, err := w.Parse(job.Filename, job.FileData())
	if err != nil {
		log.Error("parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}

	job.SetStatus(StatusRendering, "rendering")
	opts := job.Options()
	if opts.InputFilename == "" {
		opts.InputFilename = job.Filename
	}
	res, err := w.Render(ctx, doc, opts)
	if err != nil {
		log.Error("render failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "rendering")
		return
	}
	job.SetResult(res)
	log.Info("rendered document",
		"labels", res.Labels.Len(),
		"footnotes", res.Footnotes,
		"unresolved", len(res.Unresolved),
	)

	if w.store == nil {
		job.SetStatus(StatusCompleted, "done")
		return
	}

	job.SetStatus(StatusPublishing, "publishing")
	err = retry(ctx, log, "publish", w.backoff, func() error {
		return w.store.Put(ctx, job.Filename, res.Labels.Entries())
	})
	if err != nil {
		log.Error("label publish failed", "error", err)
		job.AddError(fmt.Sprintf("publish labels: %s", err))
		job.SetStatus(StatusPartial, "publishing")
		return
	}
	job.SetStatus(StatusCompleted, "done")
}

// referencedFiles lists the other documents doc refers to, sorted.
func referencedFiles(doc *doctree.Document) []string {
	var files []string
	doctree.Walk(doc, func(n doctree.Node) bool {
		if ref, ok := n.(*doctree.Reference); ok && !ref.IsURL() && ref.Label.Filename != "" {
			files = append(files, ref.Label.Filename)
		}
		return true
	})
	slices.Sort(files)
	return slices.Compact(files)
}
