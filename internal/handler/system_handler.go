package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/response"
)

const healthTimeout = 2 * time.Second

type dbPinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports liveness and the backlog of the persistence queues.
// Process metrics are on /metrics.
type SystemHandler struct {
	db        dbPinger
	rdb       redis.Cmdable
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db dbPinger, rdb redis.Cmdable, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	checks := gin.H{"postgres": "ok", "redis": "ok"}
	healthy := true

	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn().Err(err).Msg("Health check: postgres down")
		checks["postgres"] = "down"
		healthy = false
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		h.log.Warn().Err(err).Msg("Health check: redis down")
		checks["redis"] = "down"
		healthy = false
	}

	if !healthy {
		response.Success(c, http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks})
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "ok", "checks": checks})
}

type queueStats struct {
	Uptime             string `json:"uptime"`
	Goroutines         int    `json:"goroutines"`
	QueueAnswers       int64  `json:"queue_answers"`
	QueueCheats        int64  `json:"queue_cheats"`
	QueueResults       int64  `json:"queue_results"`
	QueueQuestionOrder int64  `json:"queue_question_order"`
}

// QueueStats godoc
// GET /api/v1/admin/system/queues
// A growing result backlog means results are accepted but not yet in PostgreSQL.
func (h *SystemHandler) QueueStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	pipe := h.rdb.Pipeline()
	answers := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	cheats := pipe.LLen(ctx, config.WorkerKey.PersistCheatsQueue)
	results := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
	order := pipe.LLen(ctx, config.WorkerKey.PersistQuestionOrderQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Error().Err(err).Msg("Read queue lengths failed")
		response.Fail(c, http.StatusServiceUnavailable, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, queueStats{
		Uptime:             time.Since(h.startTime).Truncate(time.Second).String(),
		Goroutines:         runtime.NumGoroutine(),
		QueueAnswers:       answers.Val(),
		QueueCheats:        cheats.Val(),
		QueueResults:       results.Val(),
		QueueQuestionOrder: order.Val(),
	})
}
