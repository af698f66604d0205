package handler

import (
	"errors"
	"net/http"

	"github.com/stemsi/exstem-cbt/internal/engine"
	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
)

// sessionError maps exam-taking errors onto an HTTP status and API error code.
// The WebSocket stream reuses the code.
func sessionError(err error) (int, response.ErrCode) {
	switch {
	case errors.Is(err, service.ErrExamNotFound):
		return http.StatusNotFound, response.ErrNotFound
	case errors.Is(err, service.ErrNoQuestions):
		return http.StatusConflict, response.ErrNoQuestions
	case errors.Is(err, service.ErrExamNotAvailable):
		return http.StatusForbidden, response.ErrExamNotAvailable
	case errors.Is(err, service.ErrInvalidEntryToken):
		return http.StatusForbidden, response.ErrInvalidEntryToken
	case errors.Is(err, service.ErrNameMismatch):
		return http.StatusForbidden, response.ErrNameMismatch
	case errors.Is(err, service.ErrExamOutOfWindow):
		return http.StatusForbidden, response.ErrExamOutOfWindow
	case errors.Is(err, service.ErrExamCompleted):
		return http.StatusConflict, response.ErrExamCompleted
	case errors.Is(err, service.ErrExamNotJoined):
		return http.StatusNotFound, response.ErrExamNotJoined
	case errors.Is(err, service.ErrInvalidOption),
		errors.Is(err, service.ErrMissingAnswer),
		errors.Is(err, engine.ErrInvalidPosition),
		errors.Is(err, engine.ErrAnswerKind):
		return http.StatusBadRequest, response.ErrInvalidPayload
	case errors.Is(err, engine.ErrSessionClosed):
		return http.StatusConflict, response.ErrSessionClosed
	case errors.Is(err, engine.ErrSessionFrozen):
		return http.StatusLocked, response.ErrSessionFrozen
	case errors.Is(err, engine.ErrSubmitInFlight):
		return http.StatusConflict, response.ErrSubmitInFlight
	case errors.Is(err, engine.ErrSubmissionFailed):
		return http.StatusServiceUnavailable, response.ErrSubmitFailed
	}
	return http.StatusInternalServerError, response.ErrInternal
}
