package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-cbt/internal/middleware"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
	"github.com/stemsi/exstem-cbt/internal/validator"
)

const submitTimeout = 15 * time.Second

// StudentPortalHandler handles student-facing endpoints (exam taking, lobby).
type StudentPortalHandler struct {
	sessionService *service.ExamSessionService
	examService    *service.ExamService
	studentService *service.StudentService
	resultService  *service.ResultService
	log            zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.ExamSessionService,
	examService *service.ExamService,
	studentService *service.StudentService,
	resultService *service.ResultService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService: sessionService,
		examService:    examService,
		studentService: studentService,
		resultService:  resultService,
		log:            log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// examParam parses the :exam_id path parameter, writing the error response itself.
func examParam(c *gin.Context) (uuid.UUID, bool) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return examID, true
}

func (h *StudentPortalHandler) failSession(c *gin.Context, err error) {
	status, code := sessionError(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("Exam session request failed")
	}
	response.Fail(c, status, code)
}

// GetLobby godoc
// GET /api/v1/student/lobby
// Returns the published exams open to the student's school.
func (h *StudentPortalHandler) GetLobby(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	exams, err := h.examService.ListPublished(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("List lobby exams failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	now := time.Now()
	lobby := make([]model.LobbyExam, 0, len(exams))
	for i := range exams {
		if exams[i].AllowsSchool(claims.School) {
			lobby = append(lobby, exams[i].Lobby(now))
		}
	}

	response.Success(c, http.StatusOK, gin.H{"exams": lobby})
}

// JoinExam godoc
// POST /api/v1/student/exams/:exam_id/join
// Checks token, name, schedule and school, then starts the session (idempotent).
func (h *StudentPortalHandler) JoinExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := examParam(c)
	if !ok {
		return
	}

	var req model.JoinExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// The name check needs the stored name, not the one baked into the token.
	student, err := h.studentService.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrSessionInvalidated)
		return
	}

	sess, err := h.sessionService.JoinExam(c.Request.Context(), examID, student.Identity(), req)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": sess.Snapshot()})
}

// GetExamState godoc
// GET /api/v1/student/exams/:exam_id/state
// Returns the full session view. Covers page reloads: questions in display
// order, answers, flags, remaining and freeze time.
func (h *StudentPortalHandler) GetExamState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := examParam(c)
	if !ok {
		return
	}

	snap, err := h.sessionService.Snapshot(examID, claims.UserID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, snap)
}

// SubmitExam godoc
// POST /api/v1/student/exams/:exam_id/submit
// Scores the session and writes the result. Safe to retry after a failure.
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := examParam(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), submitTimeout)
	defer cancel()

	result, err := h.sessionService.Submit(ctx, examID, claims.UserID)
	if err != nil {
		h.failSession(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the student's stored result once the worker has persisted it.
func (h *StudentPortalHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, ok := examParam(c)
	if !ok {
		return
	}

	result, err := h.resultService.Get(c.Request.Context(), examID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrResultNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Get result failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"result": result})
}
