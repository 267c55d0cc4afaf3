package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dgallion1/rdhtml/internal/labels"
	"github.com/dgallion1/rdhtml/internal/labelstore"
	"github.com/dgallion1/rdhtml/internal/render"
	"github.com/dgallion1/rdhtml/internal/signature"
)

type fakeStore struct {
	mu          sync.Mutex
	tables      labels.Map
	prefetchErr error
	putErr      error
	puts        map[string][]labels.Entry
	putCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{tables: labels.Map{}, puts: map[string][]labels.Entry{}}
}

func (f *fakeStore) Prefetch(_ context.Context, filenames []string) (labels.Map, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.prefetchErr != nil {
		return nil, f.prefetchErr
	}
	m := labels.Map{}
	for _, name := range filenames {
		if tab, ok := f.tables[name]; ok {
			m[name] = tab
		}
	}
	return m, nil
}

func (f *fakeStore) Put(_ context.Context, filename string, entries []labels.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	f.puts[filename] = entries
	return nil
}

func testWorker(store LabelStore) *Worker {
	w := NewWorker(store, nil, NewRenderStats(time.Hour), slog.New(slog.DiscardHandler), false)
	w.backoff = func(int) time.Duration { return 0 }
	return w
}

const crossRefDoc = "# Usage\n\nSee [setup](other.rd#Setup).\n"

func TestWorker_ProcessResolvesAndPublishes(t *testing.T) {
	store := newFakeStore()
	store.tables.Add("other.rd", []labels.Entry{{Label: "Setup", Anchor: "label-7"}})
	w := testWorker(store)

	job := NewJob("usage.md", []byte(crossRefDoc), render.Options{})
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("expected status %q, got %q (errors %v)", StatusCompleted, snap.Status, snap.Progress.Errors)
	}
	html, _, ok := job.Result()
	if !ok {
		t.Fatal("expected a result")
	}
	if !strings.Contains(html, `<a href="other.html#label-7">setup</a>`) {
		t.Errorf("expected a resolved cross-document link:\n%s", html)
	}
	if !strings.Contains(html, "<title>usage.md</title>") {
		t.Error("expected the input filename as the title fallback")
	}
	got := store.puts["usage.md"]
	if len(got) != 1 || got[0] != (labels.Entry{Label: "Usage", Anchor: "label-0"}) {
		t.Errorf("expected the document's labels to be published, got %v", got)
	}
	if s := w.stats.Snapshot(); s.Count != 1 {
		t.Errorf("expected 1 recorded render, got %d", s.Count)
	}
}

func TestWorker_PrefetchFailureDegradesToFileLink(t *testing.T) {
	store := newFakeStore()
	store.prefetchErr = &labelstore.RetryableError{StatusCode: 503, Err: errors.New("down")}
	w := testWorker(store)

	job := NewJob("usage.md", []byte(crossRefDoc), render.Options{})
	w.Process(context.Background(), job)

	if job.Snapshot().Status != StatusCompleted {
		t.Fatalf("expected completion despite prefetch failure, got %q", job.Snapshot().Status)
	}
	html, _, _ := job.Result()
	if !strings.Contains(html, `<a href="other.html">setup</a>`) {
		t.Errorf("expected a plain file link:\n%s", html)
	}
}

func TestWorker_PublishRetriesThenPartial(t *testing.T) {
	store := newFakeStore()
	store.putErr = &labelstore.RetryableError{StatusCode: 429, Err: errors.New("slow down")}
	w := testWorker(store)

	job := NewJob("usage.md", []byte(crossRefDoc), render.Options{})
	w.Process(context.Background(), job)

	if got := job.Snapshot().Status; got != StatusPartial {
		t.Errorf("expected status %q, got %q", StatusPartial, got)
	}
	if store.putCalls != MaxRetries {
		t.Errorf("expected %d publish attempts, got %d", MaxRetries, store.putCalls)
	}
	if _, _, ok := job.Result(); !ok {
		t.Error("expected the rendered page to be kept")
	}
}

func TestWorker_PublishPermanentErrorIsNotRetried(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("forbidden")
	w := testWorker(store)

	w.Process(context.Background(), NewJob("usage.md", []byte(crossRefDoc), render.Options{}))
	if store.putCalls != 1 {
		t.Errorf("expected 1 publish attempt, got %d", store.putCalls)
	}
}

func TestWorker_UnsupportedFormat(t *testing.T) {
	w := testWorker(nil)
	job := NewJob("image.png", []byte{0x89}, render.Options{})
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Errorf("expected failure while parsing, got %q/%q", snap.Status, snap.Phase)
	}

	_, err := w.Parse("image.png", nil)
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Errorf("expected a ParseError, got %v", err)
	}
}

func TestWorker_FatalRenderError(t *testing.T) {
	w := testWorker(nil)
	job := NewJob("api.md", []byte("`Hash#[]=(a, b, c, d)`\n:   Too many.\n"), render.Options{})
	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "rendering" {
		t.Fatalf("expected failure while rendering, got %q/%q", snap.Status, snap.Phase)
	}
	if len(snap.Progress.Errors) != 1 || !strings.Contains(snap.Progress.Errors[0], "Hash#[]=") {
		t.Errorf("expected the error to name the method, got %v", snap.Progress.Errors)
	}
	if s := w.stats.Snapshot(); s.Failures != 1 {
		t.Errorf("expected 1 recorded failure, got %d", s.Failures)
	}

	doc, err := w.Parse("api.md", []byte("`Hash#[]=(a, b, c, d)`\n:   Too many.\n"))
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	_, err = w.Render(context.Background(), doc, render.Options{})
	var re *render.Error
	if !errors.As(err, &re) || !errors.Is(err, signature.ErrIndexArity) {
		t.Errorf("expected a render error wrapping ErrIndexArity, got %v", err)
	}
}

func TestReferencedFiles(t *testing.T) {
	w := testWorker(nil)
	doc, err := w.Parse("x.md", []byte("[a](b.rd#x) [c](a.rd) [d](b.rd#y) [e](#local) [f](https://x.org)\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := referencedFiles(doc)
	if strings.Join(got, ",") != "a.rd,b.rd" {
		t.Errorf("expected [a.rd b.rd], got %v", got)
	}
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	err := retry(ctx, slog.New(slog.DiscardHandler), "op", func(int) time.Duration { return time.Hour }, func() error {
		calls++
		return &labelstore.RetryableError{StatusCode: 500, Err: errors.New("x")}
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestBackoff_Bounds(t *testing.T) {
	for attempt, base := range []time.Duration{time.Second, 2 * time.Second, 4 * time.Second} {
		d := Backoff(attempt)
		if d < base || d >= base+base/2 {
			t.Errorf("attempt %d: expected backoff in [%s, %s), got %s", attempt, base, base+base/2, d)
		}
	}
	if d := Backoff(10); d > 45*time.Second {
		t.Errorf("expected backoff to cap near 30s, got %s", d)
	}
}
