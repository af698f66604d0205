package worker

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/repository"
)

// ResultWorker stores submitted results and closes the matching exam_sessions rows.
type ResultWorker = BatchWorker[model.ExamResult]

func NewResultWorker(results *repository.ResultRepository, sessions *repository.ExamSessionRepository, rdb redis.Cmdable, log zerolog.Logger) *ResultWorker {
	return newBatchWorker[model.ExamResult](rdb, config.WorkerKey.PersistResultsQueue, "result_worker",
		&resultFlusher{results: results, sessions: sessions}, log)
}

type resultFlusher struct {
	results  *repository.ResultRepository
	sessions *repository.ExamSessionRepository
}

func (f *resultFlusher) FlushBatch(ctx context.Context, batch []model.ExamResult) error {
	if _, err := f.results.InsertBatch(ctx, batch); err != nil {
		return fmt.Errorf("insert results: %w", err)
	}
	if err := f.sessions.CompleteBatch(ctx, batch); err != nil {
		return fmt.Errorf("complete sessions: %w", err)
	}
	return nil
}

func (f *resultFlusher) FlushOne(ctx context.Context, res model.ExamResult) error {
	if _, err := f.results.Insert(ctx, &res); err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return f.sessions.Complete(ctx, &res)
}
