package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
)

const (
	refreshInterval   = 15 * time.Second
	keepAliveInterval = 30 * time.Second
	refreshTimeout    = 5 * time.Second // prevent slow queries from blocking the SSE loop
)

// MonitorHandler streams the proctor feed of one exam over SSE.
type MonitorHandler struct {
	rdb            *redis.Client
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	rdb *redis.Client,
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		rdb:            rdb,
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/admin/exams/:id/monitor
// Sends a snapshot, then forwards violation, freeze and submission events as
// they are published by the exam servers.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.examService.LoadExam(c.Request.Context(), examID)
	if err != nil && !errors.Is(err, service.ErrNoQuestions) {
		status, code := sessionError(err)
		response.Fail(c, status, code)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	// Subscribe before the snapshot so no event falls in between.
	pubsub := h.rdb.Subscribe(reqCtx, config.CacheKey.ExamMonitorChannel(examID.String()))
	defer pubsub.Close()
	ch := pubsub.Channel()

	if err := h.sendSnapshot(c, reqCtx, exam, examID); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to build monitor snapshot")
		c.SSEvent("message", gin.H{"type": "error", "code": response.ErrInternal})
		c.Writer.Flush()
		return
	}

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	refreshTicker := time.NewTicker(refreshInterval)
	defer refreshTicker.Stop()

	h.log.Info().Str("exam_id", examID.String()).Msg("Admin attached to live monitor SSE")

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID.String()).Msg("Admin disconnected from live monitor SSE")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Forward raw JSON directly, no deserialization needed
			c.Writer.Write([]byte("data: "))
			c.Writer.Write([]byte(msg.Payload))
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()

		case <-refreshTicker.C:
			h.sendRefresh(c, reqCtx, examID)

		case <-keepAliveTicker.C:
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(pingPayload)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *MonitorHandler) sendSnapshot(c *gin.Context, parentCtx context.Context, exam *model.Exam, examID uuid.UUID) error {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.GetSnapshot(ctx, examID)
	if err != nil {
		return err
	}

	examInfo := gin.H{"id": examID.String()}
	if exam != nil {
		examInfo["title"] = exam.Title
		examInfo["duration"] = exam.DurationMinutes
		examInfo["total_questions"] = len(exam.Questions)
	}

	c.SSEvent("message", gin.H{
		"type": "snapshot",
		"exam": examInfo,
		"data": snapshot,
	})
	c.Writer.Flush()
	return nil
}

// sendRefresh resends the live clocks and stored counts. Skipped when nobody is sitting the exam here.
func (h *MonitorHandler) sendRefresh(c *gin.Context, parentCtx context.Context, examID uuid.UUID) {
	ctx, cancel := context.WithTimeout(parentCtx, refreshTimeout)
	defer cancel()

	snapshot, err := h.monitorService.GetSnapshot(ctx, examID)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to fetch student progress for refresh")
		return
	}
	if len(snapshot.Live) == 0 && len(snapshot.InProgress) == 0 {
		return
	}

	c.SSEvent("message", gin.H{
		"type": "refresh",
		"data": snapshot,
	})
	c.Writer.Flush()
}

// RefreshExamCache godoc
// POST /api/v1/admin/exams/:id/cache/refresh
// Drops the cached exam definition and reloads it, so edits made directly in
// PostgreSQL reach sessions started afterwards. Running sessions keep the
// questions they were built from.
func (h *MonitorHandler) RefreshExamCache(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	ctx := c.Request.Context()
	if err := h.examService.InvalidateCache(ctx, examID); err != nil {
		h.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Failed to drop exam cache")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	exam, err := h.examService.LoadExam(ctx, examID)
	if err != nil {
		status, code := sessionError(err)
		response.Fail(c, status, code)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"exam_id":        exam.ID,
		"title":          exam.Title,
		"question_count": len(exam.Questions),
	})
}
