package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/ok", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"n": 1}) })
	r.GET("/slow", func(c *gin.Context) { AbortRetryLater(c, http.StatusTooManyRequests, ErrRateLimitExceeded, 0) })
	return r
}

func TestRequestIDMiddleware(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"generated", "", false},
		{"client id kept", "lab-2.pc-14_abc", true},
		{"unsafe chars replaced", "x\ny", false},
		{"too long replaced", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.header != "" {
				req.Header.Set("X-Request-ID", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			var body Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			got := w.Header().Get("X-Request-ID")
			assert.Equal(t, got, body.Metadata.RequestID)
			assert.NotZero(t, body.Metadata.ServerTimeMs)
			if tt.keep {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.NotEmpty(t, got)
			}
		})
	}
}

func TestAbortRetryLater(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrRateLimitExceeded, body.Error.Code)
	assert.Equal(t, 1, body.Error.RetryAfterSeconds)
}

func TestGetMessage_EveryCodeHasOwnMessage(t *testing.T) {
	codes := []ErrCode{
		ErrInvalidCredentials, ErrSessionActive, ErrSessionInvalidated,
		ErrTokenRequired, ErrTokenInvalid, ErrTokenExpired,
		ErrPermissionDenied, ErrStudentAccessOnly, ErrAdminAccessOnly,
		ErrValidation, ErrInvalidID, ErrInvalidPayload,
		ErrNotFound,
		ErrExamNotAvailable, ErrInvalidEntryToken, ErrNameMismatch, ErrNoQuestions,
		ErrExamOutOfWindow, ErrExamCompleted, ErrExamNotJoined, ErrSessionClosed,
		ErrSessionFrozen, ErrSubmitInFlight, ErrSubmitFailed,
		ErrRateLimitExceeded,
		ErrInternal,
	}
	fallback := GetMessage(ErrCode("UNKNOWN"))

	seen := make(map[string]ErrCode, len(codes))
	for _, code := range codes {
		msg := GetMessage(code)
		assert.NotEqual(t, fallback, msg, "code %s falls through to the default message", code)
		if prev, dup := seen[msg]; dup {
			t.Errorf("codes %s and %s share the message %q", prev, code, msg)
		}
		seen[msg] = code
	}
}
