package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/queue"
	"github.com/stemsi/exstem-cbt/internal/repository"
)

// QuestionOrderWorker stores the randomized question and option order of each attempt.
type QuestionOrderWorker = BatchWorker[queue.QuestionOrderPayload]

func NewQuestionOrderWorker(pool *pgxpool.Pool, sessions *repository.ExamSessionRepository, rdb redis.Cmdable, log zerolog.Logger) *QuestionOrderWorker {
	return newBatchWorker[queue.QuestionOrderPayload](rdb, config.WorkerKey.PersistQuestionOrderQueue, "question_order_worker",
		&questionOrderFlusher{pool: pool, sessions: sessions}, log)
}

type questionOrderFlusher struct {
	pool     *pgxpool.Pool
	sessions *repository.ExamSessionRepository
}

// BULK PostgreSQL UPDATE using UNNEST + alias
func (f *questionOrderFlusher) FlushBatch(ctx context.Context, batch []queue.QuestionOrderPayload) error {
	examIDs := make([]uuid.UUID, len(batch))
	studentIDs := make([]int, len(batch))
	orders := make([]string, len(batch))
	for i, p := range batch {
		id, err := uuid.Parse(p.ExamID)
		if err != nil {
			return fmt.Errorf("parse exam id: %w", err)
		}
		data, err := json.Marshal(p.Order)
		if err != nil {
			return err
		}
		examIDs[i], studentIDs[i], orders[i] = id, p.StudentID, string(data)
	}

	_, err := f.pool.Exec(ctx,
		`UPDATE exam_sessions AS s
		 SET question_order = v.question_order::jsonb
		 FROM UNNEST($1::uuid[], $2::int[], $3::text[]) AS v(exam_id, student_id, question_order)
		 WHERE s.exam_id = v.exam_id AND s.student_id = v.student_id`,
		examIDs, studentIDs, orders)
	return err
}

func (f *questionOrderFlusher) FlushOne(ctx context.Context, p queue.QuestionOrderPayload) error {
	id, err := uuid.Parse(p.ExamID)
	if err != nil {
		return nil
	}
	data, err := json.Marshal(p.Order)
	if err != nil {
		return nil
	}
	return f.sessions.SaveQuestionOrder(ctx, id, p.StudentID, data)
}
