package engine

import (
	"time"

	"github.com/stemsi/exstem-cbt/internal/model"
)

// EventType names a state change pushed to the student's screen and the proctor feed.
type EventType string

const (
	EventTick         EventType = "tick"
	EventViolation    EventType = "violation"
	EventFrozen       EventType = "frozen"
	EventFreezeTick   EventType = "freeze_tick"
	EventUnfrozen     EventType = "unfrozen"
	EventSubmitting   EventType = "submitting"
	EventCompleted    EventType = "completed"
	EventSubmitFailed EventType = "submit_failed"
)

// FocusSignal is the kind of focus loss the browser reported.
type FocusSignal string

const (
	FocusTabHidden  FocusSignal = "tab_hidden"
	FocusWindowBlur FocusSignal = "window_blur"
)

// Event is a snapshot of the counters at the moment of a state change.
type Event struct {
	Type                   EventType         `json:"type"`
	ExamID                 string            `json:"exam_id"`
	StudentID              int               `json:"student_id"`
	RemainingSeconds       int               `json:"remaining_seconds"`
	FreezeRemainingSeconds int               `json:"freeze_remaining_seconds,omitempty"`
	ViolationCount         int               `json:"violation_count"`
	PenaltySeconds         int               `json:"penalty_seconds,omitempty"`
	Signal                 FocusSignal       `json:"signal,omitempty"`
	AlertText              string            `json:"alert_text,omitempty"`
	PlaySound              bool              `json:"play_sound,omitempty"`
	Result                 *model.ExamResult `json:"result,omitempty"`
	Error                  string            `json:"error,omitempty"`
	At                     time.Time         `json:"at"`
}

// EventSink receives session events. It is never called with the session lock held,
// so it may call back into the session.
type EventSink func(Event)
