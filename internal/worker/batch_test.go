package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-cbt/internal/queue"
)

// fakeRedis serves BLPop and RPush from in-memory lists; any other command panics.
type fakeRedis struct {
	redis.Cmdable
	mu    sync.Mutex
	lists map[string][]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{lists: map[string][]string{}}
}

func (f *fakeRedis) RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		switch b := v.(type) {
		case []byte:
			f.lists[key] = append(f.lists[key], string(b))
		case string:
			f.lists[key] = append(f.lists[key], b)
		}
	}
	return redis.NewIntResult(int64(len(f.lists[key])), nil)
}

func (f *fakeRedis) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	for _, k := range keys {
		if len(f.lists[k]) > 0 {
			v := f.lists[k][0]
			f.lists[k] = f.lists[k][1:]
			f.mu.Unlock()
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	f.mu.Unlock()
	time.Sleep(5 * time.Millisecond)
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (f *fakeRedis) list(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lists[key]...)
}

type item struct {
	ID int `json:"id"`
}

// fakeFlusher fails the bulk path when failBatch is set and the row path for ids in failRows.
type fakeFlusher struct {
	mu        sync.Mutex
	failBatch bool
	failRows  map[int]bool
	batches   [][]item
	rows      []item
}

func (f *fakeFlusher) FlushBatch(ctx context.Context, batch []item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBatch {
		return errors.New("copy failed")
	}
	f.batches = append(f.batches, append([]item(nil), batch...))
	return nil
}

func (f *fakeFlusher) FlushOne(ctx context.Context, it item) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRows[it.ID] {
		return errors.New("insert failed")
	}
	f.rows = append(f.rows, it)
	return nil
}

func (f *fakeFlusher) flushed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.rows)
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func newTestWorker(rdb *fakeRedis, f *fakeFlusher) *BatchWorker[item] {
	w := newBatchWorker[item](rdb, "test_queue", "test_worker", f, zerolog.Nop())
	w.requeueBackoff = 0
	return w
}

func TestBatchWorker_FlushSafe_Bulk(t *testing.T) {
	rdb := newFakeRedis()
	f := &fakeFlusher{}
	w := newTestWorker(rdb, f)

	w.flushSafe(context.Background(), []item{{1}, {2}, {3}})

	require.Len(t, f.batches, 1)
	assert.Len(t, f.batches[0], 3)
	assert.Empty(t, f.rows)
	assert.Empty(t, rdb.list("test_queue"))
}

func TestBatchWorker_FlushSafe_RowFallbackAndRequeue(t *testing.T) {
	rdb := newFakeRedis()
	f := &fakeFlusher{failBatch: true, failRows: map[int]bool{2: true}}
	w := newTestWorker(rdb, f)

	w.flushSafe(context.Background(), []item{{1}, {2}, {3}})

	assert.Equal(t, []item{{1}, {3}}, f.rows)

	requeued := rdb.list("test_queue")
	require.Len(t, requeued, 1)
	var got item
	require.NoError(t, json.Unmarshal([]byte(requeued[0]), &got))
	assert.Equal(t, 2, got.ID)
}

func TestBatchWorker_DecodeDropsMalformed(t *testing.T) {
	w := newTestWorker(newFakeRedis(), &fakeFlusher{})

	_, ok := w.decode("{not json")
	assert.False(t, ok)

	got, ok := w.decode(`{"id":7}`)
	assert.True(t, ok)
	assert.Equal(t, 7, got.ID)
}

func TestBatchWorker_StartDrainsQueue(t *testing.T) {
	rdb := newFakeRedis()
	for i := 1; i <= 5; i++ {
		data, _ := json.Marshal(item{ID: i})
		rdb.RPush(context.Background(), "test_queue", data)
	}
	rdb.RPush(context.Background(), "test_queue", []byte("garbage"))

	f := &fakeFlusher{}
	w := newTestWorker(rdb, f)
	w.batchSize = 2
	w.batchTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.flushed() == 5 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Empty(t, rdb.list("test_queue"))
}

func TestBatchWorker_ShutdownFlushesBuffer(t *testing.T) {
	rdb := newFakeRedis()
	data, _ := json.Marshal(item{ID: 9})
	rdb.RPush(context.Background(), "test_queue", data)

	f := &fakeFlusher{}
	w := newTestWorker(rdb, f)
	w.batchTimeout = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return len(rdb.list("test_queue")) == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, 1, f.flushed())
}

func TestLatestAnswers_KeepsNewestPerQuestion(t *testing.T) {
	batch := []queue.AnswerPayload{
		{StudentID: 1, ExamID: "e", QuestionID: "q1", Answer: json.RawMessage(`{"kind":"single","index":0}`), Timestamp: 10},
		{StudentID: 1, ExamID: "e", QuestionID: "q2", Answer: json.RawMessage(`{"kind":"text","text":"a"}`), Timestamp: 11},
		{StudentID: 1, ExamID: "e", QuestionID: "q1", Answer: nil, Timestamp: 12},
		{StudentID: 2, ExamID: "e", QuestionID: "q1", Answer: json.RawMessage(`{"kind":"single","index":3}`), Timestamp: 9},
	}

	got := latestAnswers(batch)

	require.Len(t, got, 3)
	assert.Equal(t, "q1", got[0].QuestionID)
	assert.Equal(t, int64(12), got[0].Timestamp)
	assert.Nil(t, answerValue(got[0]))
	assert.Equal(t, `{"kind":"text","text":"a"}`, *answerValue(got[1]))
	assert.Equal(t, 2, got[2].StudentID)
}
