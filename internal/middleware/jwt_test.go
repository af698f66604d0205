package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-cbt/internal/response"
	"github.com/stemsi/exstem-cbt/internal/service"
)

type fakeValidator map[string]*service.Claims

func (f fakeValidator) ValidateToken(tokenStr string) (*service.Claims, error) {
	if tokenStr == "expired" {
		return nil, fmt.Errorf("parse token: %w", jwt.ErrTokenExpired)
	}
	c, ok := f[tokenStr]
	if !ok {
		return nil, errors.New("bad signature")
	}
	return c, nil
}

type fakeSessions struct{ err error }

func (f fakeSessions) ValidateStudentSession(ctx context.Context, studentID int, jti string) error {
	return f.err
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) response.ErrCode {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	if body.Error == nil {
		return ""
	}
	return body.Error.Code
}

func TestRequireStudentJWT(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := fakeValidator{
		"student": {TokenType: service.TokenTypeStudent, UserID: 5},
		"admin":   {TokenType: service.TokenTypeAdmin, UserID: 1},
	}

	r := gin.New()
	r.GET("/me", RequireStudentJWT(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetClaims(c).UserID})
	})

	tests := []struct {
		name     string
		header   string
		query    string
		wantCode int
		wantErr  response.ErrCode
	}{
		{"missing", "", "", http.StatusUnauthorized, response.ErrTokenRequired},
		{"expired", "Bearer expired", "", http.StatusUnauthorized, response.ErrTokenExpired},
		{"invalid", "Bearer nope", "", http.StatusUnauthorized, response.ErrTokenInvalid},
		{"admin token", "Bearer admin", "", http.StatusForbidden, response.ErrStudentAccessOnly},
		{"header", "Bearer student", "", http.StatusOK, ""},
		{"query for websocket", "", "student", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, errorCode(t, w))
			}
		})
	}
}

func TestCheckSingleDeviceSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := fakeValidator{"student": {TokenType: service.TokenTypeStudent, UserID: 5}}

	run := func(sessions fakeSessions) *httptest.ResponseRecorder {
		r := gin.New()
		r.GET("/x", RequireStudentJWT(auth), CheckSingleDeviceSession(sessions), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer student")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, run(fakeSessions{}).Code)

	w := run(fakeSessions{err: service.ErrSessionInvalidated})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, response.ErrSessionInvalidated, errorCode(t, w))

	assert.Equal(t, http.StatusServiceUnavailable, run(fakeSessions{err: errors.New("redis down")}).Code)
}

func TestRequirePermission(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := fakeValidator{"proctor": {TokenType: service.TokenTypeAdmin, Permissions: []string{"exams:monitor"}}}

	r := gin.New()
	admin := r.Group("/", RequireAdminJWT(auth))
	admin.GET("/monitor", RequirePermission("exams:monitor"), func(c *gin.Context) { c.Status(http.StatusOK) })
	admin.GET("/settings", RequirePermission("settings:read", "settings:write"), func(c *gin.Context) { c.Status(http.StatusOK) })

	for path, want := range map[string]int{"/monitor": http.StatusOK, "/settings": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer proctor")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, path)
	}
}
