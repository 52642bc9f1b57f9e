package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/store"
)

// Worker processes a single document job.
type Worker struct {
	store store.ChunkStore
	log   *slog.Logger
	opts  Options
	stats *Stats

	maxConcurrentStore int

	// backoff is the wait before retry attempt n.
	backoff func(attempt int) time.Duration
}

func NewWorker(st store.ChunkStore, log *slog.Logger, opts Options, maxStore int, stats *Stats) *Worker {
	if maxStore <= 0 {
		maxStore = 1
	}
	return &Worker{
		store:              st,
		log:                log,
		opts:               opts,
		stats:              stats,
		maxConcurrentStore: maxStore,
		backoff:            Backoff,
	}
}

// Process runs parse, chunk and store for a job. Any failure marks the job
// failed with the error text; nothing is retried except transient store
// errors.
func (w *Worker) Process(ctx context.Context, job *Job) {
	start := time.Now()
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)
	opts := w.opts
	opts.Logger = log
	if job.MaxTokens > 0 {
		opts.Chunker.MaxTokens = job.MaxTokens
	}

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	src, err := Parse(job.FileData(), job.Filename, opts)
	if err != nil {
		log.Error("parse failed", "error", err)
		w.record(start, nil, true)
		job.Fail("parsing", err)
		return
	}
	job.releaseFileData()
	job.SetParsed(src.Title, ContentHashHex([]byte(src.Markdown)))

	// Phase 2: Chunk
	job.SetStatus(StatusChunking, "chunking")
	chunks, err := ChunkSource(src, opts)
	if err != nil {
		log.Error("chunking failed", "error", err)
		w.record(start, nil, true)
		job.Fail("chunking", err)
		return
	}
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks), "pages", src.Pages)

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	if err := w.storeChunks(ctx, log, job, chunks); err != nil {
		log.Error("store failed", "error", err)
		w.record(start, chunks, true)
		job.Fail("storing", err)
		return
	}

	w.record(start, chunks, false)
	job.SetStatus(StatusCompleted, "done")
	log.Info("document stored", "chunks", len(chunks), "elapsed", time.Since(start))
}

// storeChunks replaces whatever the store holds for the document. Writes fan
// out with at most maxConcurrentStore in flight; the first failure cancels
// the rest and the chunks already written are removed.
func (w *Worker) storeChunks(ctx context.Context, log *slog.Logger, job *Job, chunks []doctree.Chunk) error {
	err := w.withRetry(ctx, log, "delete", func(ctx context.Context) error {
		err := w.store.DeleteDocument(ctx, job.DocID)
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.maxConcurrentStore)
	for _, c := range chunks {
		g.Go(func() error {
			err := w.withRetry(gctx, log, "put", func(ctx context.Context) error {
				_, err := w.store.PutChunk(ctx, job.DocID, c)
				return err
			})
			if err != nil {
				return fmt.Errorf("store chunk %d: %w", c.Position, err)
			}
			job.IncrChunksStored()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		w.discardPartial(ctx, log, job.DocID)
		return err
	}
	return nil
}

// discardPartial removes chunks written before a failed fan-out so a failed
// job leaves the document absent rather than half stored.
func (w *Worker) discardPartial(ctx context.Context, log *slog.Logger, docID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	err := w.withRetry(ctx, log, "delete", func(ctx context.Context) error {
		return w.store.DeleteDocument(ctx, docID)
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn("could not remove partially stored chunks", "error", err)
	}
}

// withRetry runs fn up to MaxRetries times while it fails with a retryable
// error, waiting between attempts.
func (w *Worker) withRetry(ctx context.Context, log *slog.Logger, op string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := range MaxRetries {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == MaxRetries-1 {
			break
		}
		log.Warn("retryable store error", "op", op, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (w *Worker) record(start time.Time, chunks []doctree.Chunk, failed bool) {
	if w.stats == nil {
		return
	}
	tokens := 0
	for _, c := range chunks {
		tokens += c.TokenCount
	}
	w.stats.RecordDocument(time.Since(start), len(chunks), tokens, failed)
}
