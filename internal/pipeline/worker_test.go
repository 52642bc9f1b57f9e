package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/store"
)

// memStore is an in-memory ChunkStore with injectable failures.
type memStore struct {
	mu     sync.Mutex
	docs   map[string]map[int]doctree.Chunk
	puts   atomic.Int32
	active atomic.Int32
	peak   atomic.Int32

	// putErr, when set, decides the error for the nth PutChunk call (1-based).
	putErr func(n int32) error
	delay  time.Duration
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[string]map[int]doctree.Chunk)}
}

func (m *memStore) PutChunk(ctx context.Context, docID string, c doctree.Chunk) (string, error) {
	n := m.puts.Add(1)
	cur := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		p := m.peak.Load()
		if cur <= p || m.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.putErr != nil {
		if err := m.putErr(n); err != nil {
			return "", err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs[docID] == nil {
		m.docs[docID] = make(map[int]doctree.Chunk)
	}
	m.docs[docID][c.Position] = c
	return fmt.Sprintf("%s-%d", docID, c.Position), nil
}

func (m *memStore) ListChunks(_ context.Context, docID string) ([]store.StoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[docID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]store.StoredChunk, 0, len(doc))
	for _, c := range doc {
		out = append(out, store.StoredChunk{DocID: docID, Chunk: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *memStore) DeleteDocument(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[docID]; !ok {
		return store.ErrNotFound
	}
	delete(m.docs, docID)
	return nil
}

func (m *memStore) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testWorker(st store.ChunkStore, maxStore int) *Worker {
	w := NewWorker(st, discardLogger(), Options{Chunker: chunker.Config{MaxTokens: 100}}, maxStore, NewStats(time.Hour))
	w.backoff = func(int) time.Duration { return time.Millisecond }
	return w
}

// sectionedMarkdown yields one chunk per top-level section.
func sectionedMarkdown(n int) string {
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "# Section %d\n\nBody of section %d.\n\n", i, i)
	}
	return b.String()
}

func TestWorker_ProcessStoresAllChunks(t *testing.T) {
	st := newMemStore()
	w := testWorker(st, 3)
	job := NewJob("job-1", "doc-1", "notes.md", []byte(sectionedMarkdown(12)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, errors = %v", snap.Status, snap.Progress.Errors)
	}
	if snap.Progress.TotalChunks != 12 || snap.Progress.ChunksStored != 12 {
		t.Errorf("progress = %+v, want 12/12", snap.Progress)
	}
	if snap.Title != "Section 0" {
		t.Errorf("title = %q", snap.Title)
	}
	if snap.ContentHash == "" {
		t.Error("expected content hash")
	}
	if job.FileData() != nil {
		t.Error("expected file data released after parsing")
	}

	stored, err := st.ListChunks(context.Background(), "doc-1")
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range stored {
		if c.Position != i {
			t.Fatalf("stored chunk %d has position %d", i, c.Position)
		}
	}
	if peak := st.peak.Load(); peak > 3 {
		t.Errorf("peak concurrent writes = %d, limit 3", peak)
	}
	if s := w.stats.Snapshot(); s.Documents != 1 || s.Chunks != 12 || s.Failed != 0 {
		t.Errorf("stats = %+v", s)
	}
}

func TestWorker_ProcessReplacesPreviousChunks(t *testing.T) {
	st := newMemStore()
	w := testWorker(st, 2)

	w.Process(context.Background(), NewJob("j1", "doc", "a.md", []byte(sectionedMarkdown(5))))
	w.Process(context.Background(), NewJob("j2", "doc", "a.md", []byte(sectionedMarkdown(2))))

	stored, err := st.ListChunks(context.Background(), "doc")
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 chunks after re-ingest, got %d", len(stored))
	}
}

func TestWorker_ProcessInvalidFormat(t *testing.T) {
	st := newMemStore()
	w := testWorker(st, 2)
	job := NewJob("job-bad", "doc-bad", "scan.pdf", []byte("not a pdf"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "parsing" {
		t.Fatalf("status/phase = %q/%q", snap.Status, snap.Phase)
	}
	if !strings.Contains(snap.Error, ErrInvalidFormat.Error()) {
		t.Errorf("error = %q", snap.Error)
	}
	if st.puts.Load() != 0 {
		t.Error("nothing should be stored for a failed parse")
	}
	if s := w.stats.Snapshot(); s.Failed != 1 {
		t.Errorf("stats failed = %d, want 1", s.Failed)
	}
}

func TestWorker_ProcessEmptyDocument(t *testing.T) {
	st := newMemStore()
	w := testWorker(st, 2)
	job := NewJob("job-empty", "doc-empty", "empty.pdf", []byte("%PDF-1.4\n%%EOF"))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, error = %q", snap.Status, snap.Error)
	}
	if snap.Progress.TotalChunks != 0 {
		t.Errorf("total chunks = %d", snap.Progress.TotalChunks)
	}
}

func TestWorker_RetriesTransientStoreErrors(t *testing.T) {
	st := newMemStore()
	st.putErr = func(n int32) error {
		if n <= 2 {
			return &store.RetryableError{StatusCode: 503, Message: "busy"}
		}
		return nil
	}
	w := testWorker(st, 1)
	job := NewJob("job-retry", "doc-retry", "one.md", []byte("# Only\n\nOne section."))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Fatalf("status = %q, error = %q", snap.Status, snap.Error)
	}
	if got := st.puts.Load(); got != 3 {
		t.Errorf("put attempts = %d, want 3", got)
	}
}

func TestWorker_GivesUpAfterMaxRetries(t *testing.T) {
	st := newMemStore()
	st.putErr = func(int32) error {
		return &store.RetryableError{StatusCode: 429, Message: "slow down"}
	}
	w := testWorker(st, 1)
	job := NewJob("job-429", "doc-429", "one.md", []byte("# Only\n\nOne section."))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "storing" {
		t.Fatalf("status/phase = %q/%q", snap.Status, snap.Phase)
	}
	if got := st.puts.Load(); got != MaxRetries {
		t.Errorf("put attempts = %d, want %d", got, MaxRetries)
	}
}

func TestWorker_FirstFailureCancelsRest(t *testing.T) {
	st := newMemStore()
	st.delay = 5 * time.Millisecond
	st.putErr = func(n int32) error {
		if n == 1 {
			return errors.New("disk full")
		}
		return nil
	}
	w := testWorker(st, 2)
	job := NewJob("job-fail", "doc-fail", "many.md", []byte(sectionedMarkdown(40)))

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusFailed {
		t.Fatalf("status = %q", snap.Status)
	}
	if !strings.Contains(snap.Error, "disk full") {
		t.Errorf("error = %q", snap.Error)
	}
	if got := st.puts.Load(); got >= 40 {
		t.Errorf("expected remaining writes to be cancelled, got %d attempts", got)
	}
}

func TestWorker_FailedStoreLeavesNoPartialDocument(t *testing.T) {
	st := newMemStore()
	st.putErr = func(n int32) error {
		if n == 3 {
			return errors.New("disk full")
		}
		return nil
	}
	w := testWorker(st, 1)
	job := NewJob("job-partial", "doc-partial", "many.md", []byte(sectionedMarkdown(6)))

	w.Process(context.Background(), job)

	if snap := job.Snapshot(); snap.Status != StatusFailed {
		t.Fatalf("status = %q", snap.Status)
	}
	if _, err := st.ListChunks(context.Background(), "doc-partial"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected no stored chunks after failure, got err=%v", err)
	}
}

func TestWorker_JobMaxTokensOverride(t *testing.T) {
	st := newMemStore()
	w := testWorker(st, 2)
	body := strings.Repeat("This sentence has some words in it. ", 60)

	small := NewJob("small", "doc-small", "p.txt", []byte(body))
	w.Process(context.Background(), small)

	large := NewJob("large", "doc-large", "p.txt", []byte(body))
	large.MaxTokens = 2000
	w.Process(context.Background(), large)

	if s, l := small.Snapshot().Progress.TotalChunks, large.Snapshot().Progress.TotalChunks; s <= l || l != 1 {
		t.Errorf("chunks with default/override budget = %d/%d", s, l)
	}
}
