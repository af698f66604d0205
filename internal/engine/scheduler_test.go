package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualScheduler_FiresEverySecond(t *testing.T) {
	s := NewManualScheduler()
	n := 0
	task := s.Every(time.Second, func() { n++ })

	s.Advance(3 * time.Second)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, s.Pending())

	task.Cancel()
	task.Cancel()
	s.Advance(5 * time.Second)
	assert.Equal(t, 3, n)
	assert.Equal(t, 0, s.Pending())
}

func TestManualScheduler_CancelFromInsideTask(t *testing.T) {
	s := NewManualScheduler()
	var first, second Task
	var log []string
	first = s.Every(time.Second, func() {
		log = append(log, "first")
		second.Cancel()
	})
	second = s.Every(time.Second, func() { log = append(log, "second") })

	s.Advance(2 * time.Second)
	assert.Equal(t, []string{"first", "first"}, log)
	first.Cancel()
}

func TestManualScheduler_TaskScheduledLaterStartsLater(t *testing.T) {
	s := NewManualScheduler()
	var ticks []string
	s.Every(time.Second, func() { ticks = append(ticks, "a") })
	s.Advance(2 * time.Second)
	s.Every(time.Second, func() { ticks = append(ticks, "b") })
	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "a", "a", "b"}, ticks)
}

func TestTickerScheduler_Cancel(t *testing.T) {
	fired := make(chan struct{}, 16)
	task := TickerScheduler{}.Every(10*time.Millisecond, func() { fired <- struct{}{} })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("ticker never fired")
	}
	task.Cancel()
	task.Cancel()
}
