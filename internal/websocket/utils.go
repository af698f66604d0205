package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WriteWait is the time allowed to write a message to the peer.
	WriteWait = 10 * time.Second
	// PongWait is the time allowed to read the next pong from the peer.
	PongWait = 60 * time.Second
	// PingPeriod must be shorter than PongWait.
	PingPeriod = (PongWait * 9) / 10
	// MaxMessageSize bounds a single client frame. Essays are the largest payload.
	MaxMessageSize = 64 * 1024
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteJSON(v)
}

// WritePing sends a ping control frame.
func WritePing(conn *websocket.Conn) error {
	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// WriteClose sends a close frame. Errors are ignored since the peer may be gone.
func WriteClose(conn *websocket.Conn) {
	conn.SetWriteDeadline(time.Now().Add(WriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// NewError builds the error frame sent for a rejected action.
func NewError(code, errMsg string) ErrorResponse {
	return ErrorResponse{
		Event: EventError,
		Code:  code,
		Error: errMsg,
	}
}

// PrepareRead applies the read limit and keeps the read deadline moving with pongs.
func PrepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(PongWait))
	})
}
