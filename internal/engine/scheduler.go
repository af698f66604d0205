package engine

import (
	"sync"
	"time"
)

// Task is a repeating job. Cancel is safe to call any number of times.
type Task interface {
	Cancel()
}

// Scheduler runs fn every d until the returned Task is cancelled.
type Scheduler interface {
	Every(d time.Duration, fn func()) Task
}

// TickerScheduler backs each task with its own time.Ticker goroutine.
type TickerScheduler struct{}

type tickerTask struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTask) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

// Every implements Scheduler.
func (TickerScheduler) Every(d time.Duration, fn func()) Task {
	task := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(d)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-task.stop:
				return
			case <-ticker.C:
				// A tick may race with Cancel; re-check before running.
				select {
				case <-task.stop:
					return
				default:
				}
				fn()
			}
		}
	}()
	return task
}

// ManualScheduler fires tasks only when Advance is called. Used by tests and
// by tooling that replays a session.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

type manualTask struct {
	every    time.Duration
	next     time.Duration
	fn       func()
	mu       sync.Mutex
	canceled bool
}

func (t *manualTask) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
}

func (t *manualTask) isCanceled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.canceled
}

// NewManualScheduler returns a scheduler whose clock starts at zero.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Every implements Scheduler.
func (s *ManualScheduler) Every(d time.Duration, fn func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{every: d, next: s.now + d, fn: fn}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d in one-second steps, firing due tasks
// in the order they were scheduled.
func (s *ManualScheduler) Advance(d time.Duration) {
	for step := time.Duration(0); step < d; step += time.Second {
		s.mu.Lock()
		s.now += time.Second
		now := s.now
		due := make([]*manualTask, 0, len(s.tasks))
		live := s.tasks[:0]
		for _, t := range s.tasks {
			if t.isCanceled() {
				continue
			}
			live = append(live, t)
			if t.next <= now {
				t.next += t.every
				due = append(due, t)
			}
		}
		s.tasks = live
		s.mu.Unlock()

		for _, t := range due {
			if !t.isCanceled() {
				t.fn()
			}
		}
	}
}

// Pending returns the number of tasks that have not been cancelled.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.isCanceled() {
			n++
		}
	}
	return n
}
