package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/queue"
)

// CheatWorker persists focus-loss violations into exam_cheats.
type CheatWorker = BatchWorker[queue.ViolationPayload]

func NewCheatWorker(pool *pgxpool.Pool, rdb redis.Cmdable, log zerolog.Logger) *CheatWorker {
	return newBatchWorker[queue.ViolationPayload](rdb, config.WorkerKey.PersistCheatsQueue, "cheat_worker", &cheatFlusher{pool: pool}, log)
}

type cheatFlusher struct {
	pool *pgxpool.Pool
}

func (f *cheatFlusher) FlushBatch(ctx context.Context, batch []queue.ViolationPayload) error {
	rows := make([][]interface{}, 0, len(batch))
	for _, p := range batch {
		examID, err := uuid.Parse(p.ExamID)
		if err != nil {
			// Let the row path drop the bad item on its own.
			return fmt.Errorf("parse exam id: %w", err)
		}
		rows = append(rows, []interface{}{
			examID, p.StudentID, p.Signal, p.ViolationNumber, p.PenaltySeconds, time.Unix(p.Timestamp, 0),
		})
	}

	_, err := f.pool.CopyFrom(
		ctx,
		pgx.Identifier{"exam_cheats"},
		[]string{"exam_id", "student_id", "signal", "violation_number", "penalty_seconds", "recorded_at"},
		pgx.CopyFromRows(rows),
	)
	return err
}

func (f *cheatFlusher) FlushOne(ctx context.Context, p queue.ViolationPayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		// Unrecoverable; dropping it is the only option.
		return nil
	}
	_, err = f.pool.Exec(ctx,
		`INSERT INTO exam_cheats (exam_id, student_id, signal, violation_number, penalty_seconds, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		examID, p.StudentID, p.Signal, p.ViolationNumber, p.PenaltySeconds, time.Unix(p.Timestamp, 0),
	)
	return err
}
