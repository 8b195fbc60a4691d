package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"riverwatch/internal/types"
)

// MaxBatchOps is the hard per-commit operation cap inherited from the
// backend's write-batch limit. A full chunk is flushed as soon as it is
// reached; the remainder is flushed by Flush at the end of the run.
const MaxBatchOps = 500

// BatchSender is the subset of *pgxpool.Pool / pgx.Tx needed to commit a
// chunk of queued operations. pgx executes a batch in an implicit
// transaction, so each chunk commit is atomic.
type BatchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type batchOp struct {
	sql  string
	args []any
}

// BatchWriter queues store write operations across stations and years and
// commits them in chunks of at most MaxBatchOps. A failed chunk loses only
// its own operations; chunks already committed stay durable, and the
// convergent idempotent write protocol makes the next run fill any gap.
type BatchWriter struct {
	db        BatchSender
	logger    *slog.Logger
	queue     []batchOp
	committed int
}

// NewBatchWriter creates a BatchWriter. The logger may be nil.
func NewBatchWriter(db BatchSender, logger *slog.Logger) *BatchWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchWriter{db: db, logger: logger}
}

// QueueCreateMetadata queues the initial metadata document write for a newly
// ingested station.
func (w *BatchWriter) QueueCreateMetadata(ctx context.Context, meta types.StationMetadata) error {
	docID := types.DocID(meta.Provider, meta.StationID)
	return w.queueOp(ctx, createMetadataSQL, docID, meta)
}

// QueueTouchMetadata queues a last_updated refresh for an existing station.
func (w *BatchWriter) QueueTouchMetadata(ctx context.Context, provider types.Provider, stationID string, now time.Time) error {
	docID := types.DocID(provider, stationID)
	return w.queueOp(ctx, touchSQL, docID, now.UTC())
}

// QueueMergeYearly queues a merge-write of daily aggregates into a year
// document.
func (w *BatchWriter) QueueMergeYearly(
	ctx context.Context,
	provider types.Provider,
	stationID string,
	year int,
	readings types.DailyReadings,
	now time.Time,
) error {
	docID := types.DocID(provider, stationID)
	return w.queueOp(ctx, mergeYearlySQL, docID, year, readings, now.UTC())
}

// queueOp appends one operation, flushing immediately when the chunk cap is
// reached.
func (w *BatchWriter) queueOp(ctx context.Context, sql string, args ...any) error {
	w.queue = append(w.queue, batchOp{sql: sql, args: args})
	if len(w.queue) >= MaxBatchOps {
		return w.Flush(ctx)
	}
	return nil
}

// Pending returns the number of queued, not-yet-committed operations.
func (w *BatchWriter) Pending() int { return len(w.queue) }

// Committed returns the number of operations committed so far.
func (w *BatchWriter) Committed() int { return w.committed }

// Flush commits all queued operations as one atomic chunk. On failure the
// queued operations are dropped (reported for this run only); previously
// committed chunks are unaffected.
func (w *BatchWriter) Flush(ctx context.Context) error {
	if len(w.queue) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, op := range w.queue {
		batch.Queue(op.sql, op.args...)
	}
	size := len(w.queue)
	w.queue = w.queue[:0]

	results := w.db.SendBatch(ctx, batch)
	var execErr error
	for i := 0; i < size; i++ {
		if _, err := results.Exec(); err != nil && execErr == nil {
			execErr = fmt.Errorf("operation %d of %d: %w", i+1, size, err)
		}
	}
	if closeErr := results.Close(); closeErr != nil && execErr == nil {
		execErr = closeErr
	}

	if execErr != nil {
		w.logger.ErrorContext(ctx, "batch chunk commit failed",
			"ops_lost", size,
			"ops_committed", w.committed,
			"error", execErr,
		)
		return types.NewAppError(types.ErrCodeInternalDB, "failed to commit batch chunk", execErr)
	}

	w.committed += size
	w.logger.DebugContext(ctx, "batch chunk committed",
		"ops", size,
		"total_committed", w.committed,
	)
	return nil
}
