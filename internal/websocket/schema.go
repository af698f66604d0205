package websocket

import (
	"encoding/json"

	"github.com/stemsi/exstem-cbt/internal/engine"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer    Action = "answer"
	ActionFlag      Action = "flag"
	ActionGoTo      Action = "goto"
	ActionFocusLost Action = "focus_lost"
	ActionSubmit    Action = "submit"
	ActionState     Action = "state"
	ActionPing      Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// AnswerRequest records an answer at a question position. OptionIndex is used
// by choice questions (a toggle for multi choice); Text by essays.
type AnswerRequest struct {
	Action      Action  `json:"action"`
	Position    int     `json:"position"`
	OptionIndex *int    `json:"option_index,omitempty"`
	Text        *string `json:"text,omitempty"`
}

// FlagRequest toggles the "in doubt" marker.
type FlagRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// GoToRequest moves the current question.
type GoToRequest struct {
	Action   Action `json:"action"`
	Position int    `json:"position"`
}

// FocusLostRequest is sent when the page is hidden or the window loses focus.
type FocusLostRequest struct {
	Action Action             `json:"action"`
	Signal engine.FocusSignal `json:"signal" binding:"required,focus_signal"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError    Event = "error"
	EventAnswered Event = "answered"
	EventFlagged  Event = "flagged"
	EventMoved    Event = "moved"
	EventState    Event = "state"
	EventSession  Event = "session"
	EventPong     Event = "pong"
)

type AnsweredResponse struct {
	Event    Event           `json:"event"`
	Position int             `json:"position"`
	Answer   json.RawMessage `json:"answer"`
}

type FlaggedResponse struct {
	Event    Event `json:"event"`
	Position int   `json:"position"`
	Flagged  bool  `json:"flagged"`
}

type MovedResponse struct {
	Event    Event `json:"event"`
	Position int   `json:"position"`
}

type StateResponse struct {
	Event Event           `json:"event"`
	State engine.Snapshot `json:"state"`
}

// SessionEventResponse forwards an engine event (tick, freeze, submission).
type SessionEventResponse struct {
	Event   Event        `json:"event"`
	Payload engine.Event `json:"payload"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
