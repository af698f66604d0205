package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/engine"
	"github.com/stemsi/exstem-cbt/internal/metrics"
	"github.com/stemsi/exstem-cbt/internal/middleware"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/validator"
	ws "github.com/stemsi/exstem-cbt/internal/websocket"
	"golang.org/x/time/rate"
)

const (
	// Per-connection action budget: sustained rate and burst.
	wsActionRate  = 20
	wsActionBurst = 40

	wsSendBuffer    = 32
	wsSubmitTimeout = 15 * time.Second
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a running exam session to the student's browser.
type WSHandler struct {
	sessionService *service.ExamSessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.ExamSessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// wsClient is one connected browser tab. writePump is the only goroutine
// writing to conn; everything else goes through send.
type wsClient struct {
	h         *WSHandler
	conn      *websocket.Conn
	examID    uuid.UUID
	studentID int
	send      chan any
	quit      chan struct{}
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// ExamWebSocketStream godoc
// WS /ws/v1/student/exams/:exam_id/stream
// Carries answers, flags, navigation and focus-loss reports in, and the
// countdown, freeze and submission events out.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Reject before the upgrade so the client gets a normal HTTP error.
	events, unsubscribe, err := h.sessionService.Subscribe(examID, claims.UserID)
	if err != nil {
		status, code := sessionError(err)
		response.Fail(c, status, code)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		unsubscribe()
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{
		h:         h,
		conn:      conn,
		examID:    examID,
		studentID: claims.UserID,
		send:      make(chan any, wsSendBuffer),
		quit:      make(chan struct{}),
		limiter:   rate.NewLimiter(rate.Limit(wsActionRate), wsActionBurst),
		log: h.log.With().
			Int("student_id", claims.UserID).
			Str("exam_id", examID.String()).
			Logger(),
	}

	metrics.WSConnections.Inc()
	client.log.Info().Msg("Student connected")

	go client.writePump(events)
	client.readPump()

	unsubscribe()
	metrics.WSConnections.Dec()
	client.log.Info().Msg("Student disconnected")
}

func (cl *wsClient) readPump() {
	defer func() {
		close(cl.quit)
		cl.conn.Close()
	}()

	ws.PrepareRead(cl.conn)

	// The browser needs the full state right after (re)connecting.
	cl.handleState()

	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				cl.log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}

		if !cl.limiter.Allow() {
			cl.reply(ws.NewError(string(response.ErrRateLimitExceeded), response.GetMessage(response.ErrRateLimitExceeded)))
			continue
		}

		var env ws.RequestEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			cl.replyCode(response.ErrInvalidPayload)
			continue
		}

		switch env.Action {
		case ws.ActionAnswer:
			cl.handleAnswer(raw)
		case ws.ActionFlag:
			cl.handleFlag(raw)
		case ws.ActionGoTo:
			cl.handleGoTo(raw)
		case ws.ActionFocusLost:
			cl.handleFocusLost(raw)
		case ws.ActionSubmit:
			cl.handleSubmit()
		case ws.ActionState:
			cl.handleState()
		case ws.ActionPing:
			cl.reply(ws.PongResponse{Event: ws.EventPong})
		default:
			cl.replyCode(response.ErrInvalidPayload)
		}
	}
}

func (cl *wsClient) writePump(events <-chan engine.Event) {
	ticker := time.NewTicker(ws.PingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg := <-cl.send:
			if err := ws.WriteTyped(cl.conn, msg); err != nil {
				return
			}
		case e, ok := <-events:
			if !ok {
				// Session finished; keep the socket for the final replies.
				events = nil
				continue
			}
			if err := ws.WriteTyped(cl.conn, ws.SessionEventResponse{Event: ws.EventSession, Payload: e}); err != nil {
				return
			}
		case <-ticker.C:
			if err := ws.WritePing(cl.conn); err != nil {
				return
			}
		case <-cl.quit:
			ws.WriteClose(cl.conn)
			return
		}
	}
}

// reply queues a frame for writePump. Drops the frame if the client has gone.
func (cl *wsClient) reply(v any) {
	select {
	case cl.send <- v:
	case <-cl.quit:
	}
}

func (cl *wsClient) replyCode(code response.ErrCode) {
	cl.reply(ws.NewError(string(code), response.GetMessage(code)))
}

func (cl *wsClient) replyErr(err error) {
	_, code := sessionError(err)
	if code == response.ErrInternal {
		cl.log.Error().Err(err).Msg("Session action failed")
	}
	cl.replyCode(code)
}

func (cl *wsClient) handleAnswer(raw []byte) {
	var req ws.AnswerRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cl.replyCode(response.ErrInvalidPayload)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ws.WriteWait)
	defer cancel()

	ans, err := cl.h.sessionService.Answer(ctx, cl.examID, cl.studentID, req.Position, req.OptionIndex, req.Text)
	if err != nil {
		cl.replyErr(err)
		return
	}

	encoded := json.RawMessage("null")
	if ans != nil {
		if b, err := model.EncodeAnswer(ans); err == nil {
			encoded = b
		}
	}
	cl.reply(ws.AnsweredResponse{Event: ws.EventAnswered, Position: req.Position, Answer: encoded})
}

func (cl *wsClient) handleFlag(raw []byte) {
	var req ws.FlagRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cl.replyCode(response.ErrInvalidPayload)
		return
	}

	flagged, err := cl.h.sessionService.ToggleFlag(cl.examID, cl.studentID, req.Position)
	if err != nil {
		cl.replyErr(err)
		return
	}
	cl.reply(ws.FlaggedResponse{Event: ws.EventFlagged, Position: req.Position, Flagged: flagged})
}

func (cl *wsClient) handleGoTo(raw []byte) {
	var req ws.GoToRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cl.replyCode(response.ErrInvalidPayload)
		return
	}

	pos, err := cl.h.sessionService.GoTo(cl.examID, cl.studentID, req.Position)
	if err != nil {
		cl.replyErr(err)
		return
	}
	cl.reply(ws.MovedResponse{Event: ws.EventMoved, Position: pos})
}

func (cl *wsClient) handleFocusLost(raw []byte) {
	var req ws.FocusLostRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		cl.replyCode(response.ErrInvalidPayload)
		return
	}
	if fields := validator.Struct(&req); fields != nil {
		cl.reply(ws.NewError(string(response.ErrValidation), fields["signal"]))
		return
	}

	// A counted violation reaches the client as a session event.
	if _, err := cl.h.sessionService.FocusLost(cl.examID, cl.studentID, req.Signal); err != nil {
		cl.replyErr(err)
	}
}

func (cl *wsClient) handleSubmit() {
	ctx, cancel := context.WithTimeout(context.Background(), wsSubmitTimeout)
	defer cancel()

	if _, err := cl.h.sessionService.Submit(ctx, cl.examID, cl.studentID); err != nil {
		cl.replyErr(err)
		return
	}
	cl.handleState()
}

func (cl *wsClient) handleState() {
	snap, err := cl.h.sessionService.Snapshot(cl.examID, cl.studentID)
	if err != nil {
		cl.replyErr(err)
		return
	}
	cl.reply(ws.StateResponse{Event: ws.EventState, State: snap})
}
