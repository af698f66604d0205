// Package worker drains the Redis persistence queues into PostgreSQL.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/metrics"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// Flusher persists decoded queue items.
type Flusher[T any] interface {
	// FlushBatch writes the whole batch in one round trip.
	FlushBatch(ctx context.Context, batch []T) error
	// FlushOne writes a single item; used when the batch write failed.
	FlushOne(ctx context.Context, item T) error
}

// BatchWorker pops JSON items from a Redis list and flushes them in batches:
// bulk write first, then row by row, then back onto the list.
type BatchWorker[T any] struct {
	rdb     redis.Cmdable
	queue   string
	flusher Flusher[T]
	log     zerolog.Logger

	batchSize      int
	batchTimeout   time.Duration
	requeueBackoff time.Duration
}

func newBatchWorker[T any](rdb redis.Cmdable, queue, component string, flusher Flusher[T], log zerolog.Logger) *BatchWorker[T] {
	return &BatchWorker[T]{
		rdb:            rdb,
		queue:          queue,
		flusher:        flusher,
		log:            log.With().Str("component", component).Logger(),
		batchSize:      BatchSize,
		batchTimeout:   BatchTimeout,
		requeueBackoff: 2 * time.Second,
	}
}

// Start runs until ctx is cancelled, then flushes what is buffered. Call in a goroutine.
func (w *BatchWorker[T]) Start(ctx context.Context) {
	w.log.Info().Str("queue", w.queue).Msg("Worker started")

	buffer := make([]T, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(buffer) > 0 && (len(buffer) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// BLPop blocks for PollTimeout. Returns immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		if item, ok := w.decode(result[1]); ok {
			buffer = append(buffer, item)
		}
	}
}

// decode parses one queue entry. Malformed entries cannot be retried and are dropped.
func (w *BatchWorker[T]) decode(raw string) (T, bool) {
	var item T
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		w.log.Error().Err(err).Str("data", raw).Msg("Discarding malformed JSON")
		return item, false
	}
	return item, true
}

// flushSafe attempts bulk insert, then fallback insert, then requeue.
func (w *BatchWorker[T]) flushSafe(ctx context.Context, batch []T) {
	if len(batch) == 0 {
		return
	}
	err := w.flusher.FlushBatch(ctx, batch)
	if err == nil {
		metrics.QueueFlushes.WithLabelValues(w.queue, "bulk").Add(float64(len(batch)))
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk write failed, attempting row-by-row recovery")

	var failed []T
	for _, item := range batch {
		if err := w.flusher.FlushOne(ctx, item); err != nil {
			w.log.Error().Err(err).Msg("Row write failed, requeueing")
			failed = append(failed, item)
			continue
		}
		metrics.QueueFlushes.WithLabelValues(w.queue, "row").Inc()
	}

	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *BatchWorker[T]) requeue(ctx context.Context, items []T) {
	values := make([]interface{}, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			continue
		}
		values = append(values, data)
	}
	if len(values) == 0 {
		return
	}

	if err := w.rdb.RPush(ctx, w.queue, values...).Err(); err != nil {
		w.log.Error().Err(err).Int("count", len(values)).Msg("CRITICAL: Failed to requeue items to Redis. Data loss occurred.")
		return
	}
	metrics.QueueFlushes.WithLabelValues(w.queue, "requeued").Add(float64(len(values)))
	w.log.Info().Int("count", len(values)).Msg("Requeued failed items back to Redis")

	// Avoid thrashing while the database is down.
	time.Sleep(w.requeueBackoff)
}

func (w *BatchWorker[T]) shutdown(buffer []T) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	w.flushSafe(shutdownCtx, buffer)
}
