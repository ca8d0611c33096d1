// Package batch drives a single end-to-end run of discovery, extraction and
// merging across a directory tree.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/internal/event"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/internal/merge"
	"github.com/hbomb79/mediascan/pkg/logger"
)

var log = logger.Get("Batch")

const DefaultProgressInterval = 10

type Status string

const (
	COMPLETED Status = "completed"
	CANCELLED Status = "cancelled"
)

type (
	// Result is the outcome of a batch run. Records are held in discovery
	// order. A cancelled result holds the records of every file processed
	// before the cancellation was observed.
	Result struct {
		ID         uuid.UUID
		Root       string
		Schema     []string
		Records    []*media.Record
		Discovered int
		TotalBytes int64
		Status     Status
		StartedAt  time.Time
		FinishedAt time.Time
	}

	// Runner processes the files under a root directory sequentially. It
	// is safe to reuse a Runner for multiple runs, but not concurrently.
	Runner struct {
		discoverer       *discover.Discoverer
		chain            *extract.Chain
		merger           *merge.Merger
		events           event.EventDispatcher
		progressInterval int
	}
)

// NewRunner creates a Runner which uses the discoverer and adapter chain
// provided. Progress events are dispatched on the event dispatcher every
// 'progressInterval' files; a non-positive interval uses DefaultProgressInterval.
func NewRunner(discoverer *discover.Discoverer, chain *extract.Chain, events event.EventDispatcher, progressInterval int) *Runner {
	if progressInterval <= 0 {
		progressInterval = DefaultProgressInterval
	}

	return &Runner{
		discoverer:       discoverer,
		chain:            chain,
		merger:           merge.New(chain.Schema()),
		events:           events,
		progressInterval: progressInterval,
	}
}

func (r *Result) Cancelled() bool { return r.Status == CANCELLED }

// Processed returns the number of files which have a record in this result.
func (r *Result) Processed() int { return len(r.Records) }

// Run discovers the files under root and processes each of them in turn.
//
// Discovery failures (missing root, not a directory, no media files) are
// returned as errors before any file is processed. Once processing has begun,
// failures are captured inside of the records and never abort the run.
//
// Cancellation of the context is observed between files: the file being
// processed is allowed to finish, and the partial result is returned with
// a CANCELLED status and a nil error.
func (r *Runner) Run(ctx context.Context, root string) (*Result, error) {
	result := &Result{
		ID:        uuid.New(),
		Root:      root,
		Schema:    r.merger.Schema(),
		Records:   make([]*media.Record, 0),
		Status:    COMPLETED,
		StartedAt: time.Now(),
	}

	files, err := r.discoverer.Discover(ctx, root)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Emit(logger.STOP, "Batch %s cancelled during discovery", result.ID)
			result.Status = CANCELLED
			result.FinishedAt = time.Now()
			return result, nil
		}

		return nil, err
	}

	result.Discovered = len(files)
	log.Emit(logger.NEW, "Batch %s started: %d media files found in %s", result.ID, len(files), root)
	r.dispatchProgress(event.BATCH_STARTED, result)

	for i, file := range files {
		if ctx.Err() != nil {
			result.Status = CANCELLED
			break
		}

		record := r.processFile(ctx, result.ID, file)
		result.Records = append(result.Records, record)
		result.TotalBytes += file.Stat.Size

		if (i+1)%r.progressInterval == 0 {
			log.Emit(logger.INFO, "Processed %d/%d files", i+1, len(files))
			r.dispatchProgress(event.BATCH_PROGRESS, result)
		}
	}

	result.FinishedAt = time.Now()
	if result.Cancelled() {
		log.Emit(logger.STOP, "Batch %s cancelled after %d/%d files", result.ID, result.Processed(), result.Discovered)
	} else {
		log.Emit(logger.SUCCESS, "Batch %s complete: processed %d files in %s", result.ID, result.Processed(), result.FinishedAt.Sub(result.StartedAt).Round(time.Millisecond))
	}

	r.dispatchProgress(event.BATCH_COMPLETE, result)
	return result, nil
}

// processFile runs the adapter chain for a single file and merges the
// results. The file is processed under a context which is detached
// from cancellation so that a cancelled run still finishes the current
// file. Any panic is recovered and the file degrades to a record
// containing only its file system facts.
func (r *Runner) processFile(ctx context.Context, batchID uuid.UUID, file media.File) (record *media.Record) {
	defer func() {
		if p := recover(); p != nil {
			log.Emit(logger.ERROR, "Processing of %s panicked: %v\n%s", file.Path, p, debug.Stack())
			record = r.merger.Degraded(file, fmt.Errorf("processing failed: %v", p))
		}

		if msg := record.String(media.FieldError); msg != media.NotAvailable {
			log.Emit(logger.WARNING, "Failed to extract metadata from %s: %s", file.Path, msg)
			r.dispatch(event.FILE_TROUBLED, event.FileTrouble{BatchID: batchID, Path: file.Path, Message: msg})
		}
	}()

	results := r.chain.Run(context.WithoutCancel(ctx), file)
	return r.merger.Merge(file, results)
}

func (r *Runner) dispatchProgress(e event.Event, result *Result) {
	r.dispatch(e, event.BatchProgress{
		BatchID:   result.ID,
		Root:      result.Root,
		Processed: result.Processed(),
		Total:     result.Discovered,
		Bytes:     result.TotalBytes,
		Cancelled: result.Cancelled(),
	})
}

func (r *Runner) dispatch(e event.Event, payload event.Payload) {
	if r.events != nil {
		r.events.Dispatch(e, payload)
	}
}
