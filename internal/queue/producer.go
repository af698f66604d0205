// Package queue pushes audit records and results onto the Redis lists drained
// by the persistence workers, and publishes live events for proctors.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// Producer writes to the worker queues.
type Producer struct {
	rdb redis.Cmdable
	log zerolog.Logger
}

// NewProducer creates a new Producer.
func NewProducer(rdb redis.Cmdable, log zerolog.Logger) *Producer {
	return &Producer{
		rdb: rdb,
		log: log.With().Str("component", "queue_producer").Logger(),
	}
}

func (p *Producer) push(ctx context.Context, queue string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", queue, err)
	}
	if err := p.rdb.RPush(ctx, queue, data).Err(); err != nil {
		return fmt.Errorf("push %s: %w", queue, err)
	}
	return nil
}

// EnqueueAnswer queues an autosaved answer for persistence.
func (p *Producer) EnqueueAnswer(ctx context.Context, a AnswerPayload) error {
	return p.push(ctx, config.WorkerKey.PersistAnswersQueue, a)
}

// EnqueueViolation queues a focus-loss violation for persistence.
func (p *Producer) EnqueueViolation(ctx context.Context, v ViolationPayload) error {
	return p.push(ctx, config.WorkerKey.PersistCheatsQueue, v)
}

// EnqueueQuestionOrder queues the randomized order of an attempt.
func (p *Producer) EnqueueQuestionOrder(ctx context.Context, o QuestionOrderPayload) error {
	return p.push(ctx, config.WorkerKey.PersistQuestionOrderQueue, o)
}

// WriteResult hands a finished result to the result worker. The result is
// durable once it is on the list; the worker writes it idempotently.
func (p *Producer) WriteResult(ctx context.Context, result *model.ExamResult) error {
	if err := p.push(ctx, config.WorkerKey.PersistResultsQueue, result); err != nil {
		return err
	}
	p.log.Debug().
		Str("exam_id", result.ExamID.String()).
		Int("student_id", result.StudentID).
		Msg("Result queued")
	return nil
}

// PublishMonitor broadcasts v to the proctors watching examID.
func (p *Producer) PublishMonitor(ctx context.Context, examID string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal monitor event: %w", err)
	}
	return p.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(examID), data).Err()
}
