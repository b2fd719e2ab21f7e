package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"modelcatalog/internal/schema"
)

// DefaultBatchSize is the number of entries committed per transaction.
const DefaultBatchSize = 1000

// Result is the outcome of writing one entry. Err is nil on success.
type Result struct {
	ID  string
	Err error
}

// BatchStats are running totals for a BatchWriter.
type BatchStats struct {
	Batches int64
	Written int64
	Failed  int64
}

// BatchWriter groups entries into transactions of at most size entries.
// Each entry is written atomically within the batch transaction; an entry
// that fails is reported through onResult and the batch still commits.
// Begin and commit failures are fatal and returned to the caller.
//
// A BatchWriter is not safe for concurrent use. Shard the input and give
// each goroutine its own writer instead.
type BatchWriter struct {
	store    Store
	size     int
	onResult func(Result)
	logger   log.FieldLogger

	pending []*schema.Entry
	stats   BatchStats

	start     time.Time
	lastFlush time.Time
}

// NewBatchWriter returns a writer over store. onResult may be nil.
func NewBatchWriter(store Store, size int, onResult func(Result)) (*BatchWriter, error) {
	if store == nil {
		return nil, errors.New("store must not be nil")
	}
	if size <= 0 {
		return nil, errors.Errorf("batch size must be > 0, got %d", size)
	}
	now := time.Now()
	return &BatchWriter{
		store:     store,
		size:      size,
		onResult:  onResult,
		logger:    log.StandardLogger(),
		pending:   make([]*schema.Entry, 0, size),
		start:     now,
		lastFlush: now,
	}, nil
}

// WithLogger replaces the progress logger.
func (w *BatchWriter) WithLogger(l log.FieldLogger) *BatchWriter {
	w.logger = l
	return w
}

// Add queues e and flushes when the batch is full.
func (w *BatchWriter) Add(ctx context.Context, e *schema.Entry) error {
	w.pending = append(w.pending, e)
	if len(w.pending) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes the queued entries in one transaction. It is a no-op when
// nothing is queued.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.pending) == 0 {
		return nil
	}
	batch := w.pending
	defer func() { w.pending = w.pending[:0] }()

	tx, err := w.store.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin batch")
	}

	results := make([]Result, 0, len(batch))
	var written int64
	for _, e := range batch {
		if err := ctx.Err(); err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			return err
		}
		werr := tx.WriteEntry(ctx, e)
		if werr == nil {
			written++
		}
		results = append(results, Result{ID: e.Model.ID, Err: werr})
	}

	if err := tx.Commit(ctx); err != nil {
		_ = tx.Rollback(context.WithoutCancel(ctx))
		w.logger.WithError(err).WithField("batch", w.stats.Batches+1).Error("batch commit failed")
		return errors.Wrapf(err, "commit batch #%d", w.stats.Batches+1)
	}

	w.stats.Batches++
	w.stats.Written += written
	w.stats.Failed += int64(len(batch)) - written
	for _, r := range results {
		if w.onResult != nil {
			w.onResult(r)
		}
	}

	now := time.Now()
	sinceLast := now.Sub(w.lastFlush)
	rps := float64(0)
	if sinceLast > 0 {
		rps = float64(len(batch)) / sinceLast.Seconds()
	}
	w.logger.WithFields(log.Fields{
		"batch":         w.stats.Batches,
		"rps":           int64(rps),
		"written":       written,
		"failed":        int64(len(batch)) - written,
		"total_written": w.stats.Written,
		"elapsed":       now.Sub(w.start).Truncate(time.Millisecond),
		"since_last":    sinceLast.Truncate(time.Millisecond),
	}).Debug("batch committed")
	w.lastFlush = now
	return nil
}

// Close flushes the final partial batch.
func (w *BatchWriter) Close(ctx context.Context) error {
	return w.Flush(ctx)
}

// Stats returns the running totals.
func (w *BatchWriter) Stats() BatchStats { return w.stats }
