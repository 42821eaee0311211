package worker

import (
	"context"
	"errors"
	"time"

	"github.com/opsis/opsis-backend/internal/model"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AuditBatchSize    = 50
	AuditBatchTimeout = 2 * time.Second
	AuditPollTimeout  = 1 * time.Second
)

// AuditSource is the queue of audit entries whose synchronous insert failed.
type AuditSource interface {
	Pop(ctx context.Context, timeout time.Duration) (model.AuditEntry, error)
	Push(ctx context.Context, entries ...model.AuditEntry) error
}

// AuditSink stores audit entries.
type AuditSink interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	BulkInsert(ctx context.Context, entries []model.AuditEntry) error
}

// AuditWorker drains the audit queue into Postgres in batches.
type AuditWorker struct {
	queue AuditSource
	store AuditSink
	log   zerolog.Logger
}

func NewAuditWorker(queue AuditSource, store AuditSink, log zerolog.Logger) *AuditWorker {
	return &AuditWorker{
		queue: queue,
		store: store,
		log:   log.With().Str("component", "audit_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is cancelled, then flushes what it holds.
func (w *AuditWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AuditWorker started")

	batch := make([]model.AuditEntry, 0, AuditBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AuditBatchSize || time.Since(lastFlush) >= AuditBatchTimeout) {

			w.Flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.Flush(context.Background(), batch)
			return

		default:
			entry, err := w.queue.Pop(ctx, AuditPollTimeout)
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("Audit queue pop failed")
				}
				continue
			}
			batch = append(batch, entry)
		}
	}
}

// ----------------------------------------------------------------
// Flush with single-insert fallback
// ----------------------------------------------------------------

// Flush stores batch. If the bulk insert fails each entry is inserted alone, and
// entries that still fail go back on the queue.
func (w *AuditWorker) Flush(ctx context.Context, batch []model.AuditEntry) {
	if len(batch) == 0 {
		return
	}

	err := w.store.BulkInsert(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Audit batch stored")
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("bulk audit insert failed, using fallback")

	var failed []model.AuditEntry
	for i := range batch {
		if err := w.store.Insert(ctx, &batch[i]); err != nil {
			w.log.Error().Err(err).Str("action", batch[i].Action).Msg("single audit insert failed, requeueing")
			failed = append(failed, batch[i])
		}
	}
	if len(failed) == 0 {
		return
	}
	if err := w.queue.Push(ctx, failed...); err != nil {
		w.log.Error().Err(err).Int("count", len(failed)).Msg("Audit entries lost: requeue failed")
	}
}
