package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
)

// fakeRedis records RPush and Publish; any other command panics.
type fakeRedis struct {
	redis.Cmdable
	lists     map[string][]string
	published map[string][]string
	err       error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: map[string][]string{}, published: map[string][]string{}}
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	for _, v := range values {
		f.lists[key] = append(f.lists[key], string(v.([]byte)))
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.published[channel] = append(f.published[channel], string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func TestProducer_WriteResult(t *testing.T) {
	rdb := newFakeRedis()
	p := NewProducer(rdb, zerolog.Nop())

	res := &model.ExamResult{ExamID: uuid.New(), StudentID: 4, Score: 30, MaxScore: 40}
	require.NoError(t, p.WriteResult(context.Background(), res))

	queued := rdb.lists[config.WorkerKey.PersistResultsQueue]
	require.Len(t, queued, 1)

	var got model.ExamResult
	require.NoError(t, json.Unmarshal([]byte(queued[0]), &got))
	assert.Equal(t, res.ExamID, got.ExamID)
	assert.Equal(t, 30, got.Score)
}

func TestProducer_PushError(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	p := NewProducer(rdb, zerolog.Nop())

	err := p.EnqueueViolation(context.Background(), ViolationPayload{StudentID: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.WorkerKey.PersistCheatsQueue)
}

func TestProducer_QueuesByKind(t *testing.T) {
	rdb := newFakeRedis()
	p := NewProducer(rdb, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, p.EnqueueAnswer(ctx, AnswerPayload{StudentID: 1, Answer: json.RawMessage(`{"kind":"single","index":1}`)}))
	require.NoError(t, p.EnqueueQuestionOrder(ctx, QuestionOrderPayload{StudentID: 1}))
	require.NoError(t, p.PublishMonitor(ctx, "exam-1", map[string]string{"type": "tick"}))

	assert.Len(t, rdb.lists[config.WorkerKey.PersistAnswersQueue], 1)
	assert.Len(t, rdb.lists[config.WorkerKey.PersistQuestionOrderQueue], 1)
	assert.Equal(t, []string{`{"type":"tick"}`}, rdb.published["exam:exam-1:monitor"])
}
