package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/queue"
)

// AutosaveWorker UPSERTs answers into student_answers.
type AutosaveWorker = BatchWorker[queue.AnswerPayload]

func NewAutosaveWorker(pool *pgxpool.Pool, rdb redis.Cmdable, log zerolog.Logger) *AutosaveWorker {
	return newBatchWorker[queue.AnswerPayload](rdb, config.WorkerKey.PersistAnswersQueue, "autosave_worker", &answerFlusher{pool: pool}, log)
}

type answerFlusher struct {
	pool *pgxpool.Pool
}

type answerKey struct {
	examID     string
	studentID  int
	questionID string
}

// latestAnswers keeps the newest payload per (exam, student, question). A
// single UPSERT statement must not touch the same row twice.
func latestAnswers(batch []queue.AnswerPayload) []queue.AnswerPayload {
	index := make(map[answerKey]int, len(batch))
	out := make([]queue.AnswerPayload, 0, len(batch))
	for _, p := range batch {
		k := answerKey{p.ExamID, p.StudentID, p.QuestionID}
		if i, ok := index[k]; ok {
			if p.Timestamp >= out[i].Timestamp {
				out[i] = p
			}
			continue
		}
		index[k] = len(out)
		out = append(out, p)
	}
	return out
}

func answerValue(p queue.AnswerPayload) *string {
	if len(p.Answer) == 0 || string(p.Answer) == "null" {
		return nil
	}
	s := string(p.Answer)
	return &s
}

func (f *answerFlusher) FlushBatch(ctx context.Context, batch []queue.AnswerPayload) error {
	batch = latestAnswers(batch)
	examIDs := make([]uuid.UUID, len(batch))
	studentIDs := make([]int, len(batch))
	questionIDs := make([]uuid.UUID, len(batch))
	answers := make([]*string, len(batch))
	answeredAt := make([]time.Time, len(batch))
	for i, p := range batch {
		var err error
		if examIDs[i], err = uuid.Parse(p.ExamID); err != nil {
			return fmt.Errorf("parse exam id: %w", err)
		}
		if questionIDs[i], err = uuid.Parse(p.QuestionID); err != nil {
			return fmt.Errorf("parse question id: %w", err)
		}
		studentIDs[i] = p.StudentID
		answers[i] = answerValue(p)
		answeredAt[i] = time.Unix(p.Timestamp, 0)
	}

	_, err := f.pool.Exec(ctx,
		`INSERT INTO student_answers (exam_id, student_id, question_id, answer, updated_at)
		 SELECT * FROM UNNEST($1::uuid[], $2::int[], $3::uuid[], $4::jsonb[], $5::timestamptz[])
		 ON CONFLICT (exam_id, student_id, question_id) DO UPDATE
		 SET answer = EXCLUDED.answer, updated_at = EXCLUDED.updated_at
		 WHERE student_answers.updated_at <= EXCLUDED.updated_at`,
		examIDs, studentIDs, questionIDs, answers, answeredAt)
	return err
}

func (f *answerFlusher) FlushOne(ctx context.Context, p queue.AnswerPayload) error {
	examID, err := uuid.Parse(p.ExamID)
	if err != nil {
		return nil
	}
	questionID, err := uuid.Parse(p.QuestionID)
	if err != nil {
		return nil
	}

	_, err = f.pool.Exec(ctx,
		`INSERT INTO student_answers (exam_id, student_id, question_id, answer, updated_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (exam_id, student_id, question_id) DO UPDATE
		 SET answer = EXCLUDED.answer, updated_at = EXCLUDED.updated_at
		 WHERE student_answers.updated_at <= EXCLUDED.updated_at`,
		examID, p.StudentID, questionID, answerValue(p), time.Unix(p.Timestamp, 0),
	)
	return err
}
