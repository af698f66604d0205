package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-cbt/internal/config"
	"github.com/stemsi/exstem-cbt/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fakeRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	if _, ok := f.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.Set(ctx, key, value, expiration)
	return redis.NewBoolResult(true, nil)
}

func newTestAuth(rdb redis.Cmdable) *AuthService {
	return NewAuthService(&config.Config{JWTSecret: "test-secret", JWTExpiry: time.Hour}, rdb)
}

func TestAuthService_StudentSingleDevice(t *testing.T) {
	rdb := newFakeRedis()
	auth := newTestAuth(rdb)
	ctx := context.Background()
	student := model.StudentIdentity{ID: 42, Name: "Siti", School: "SMAN 3"}

	token, err := auth.GenerateStudentToken(ctx, student)
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeStudent, claims.TokenType)
	assert.Equal(t, 42, claims.UserID)
	assert.Equal(t, "SMAN 3", claims.School)
	assert.Equal(t, time.Hour, rdb.ttls[config.CacheKey.StudentSessionKey(42)])
	require.NoError(t, auth.ValidateStudentSession(ctx, 42, claims.ID))

	_, err = auth.GenerateStudentToken(ctx, student)
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)

	require.NoError(t, auth.ResetStudentSession(ctx, 42))
	assert.ErrorIs(t, auth.ValidateStudentSession(ctx, 42, claims.ID), ErrNoActiveSession)

	second, err := auth.GenerateStudentToken(ctx, student)
	require.NoError(t, err)
	secondClaims, err := auth.ValidateToken(second)
	require.NoError(t, err)
	assert.ErrorIs(t, auth.ValidateStudentSession(ctx, 42, claims.ID), ErrSessionInvalidated)
	assert.NoError(t, auth.ValidateStudentSession(ctx, 42, secondClaims.ID))
}

func TestAuthService_AdminPermissions(t *testing.T) {
	auth := newTestAuth(newFakeRedis())

	token, err := auth.GenerateAdminToken(1, 2, []string{string(model.PermissionExamsMonitor)})
	require.NoError(t, err)

	claims, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeAdmin, claims.TokenType)
	assert.True(t, claims.HasPermission(model.PermissionExamsMonitor))
	assert.False(t, claims.HasPermission(model.PermissionSettingsWrite))
}

func TestAuthService_ValidateTokenRejects(t *testing.T) {
	auth := newTestAuth(newFakeRedis())
	token, err := auth.GenerateAdminToken(1, 2, nil)
	require.NoError(t, err)

	other := NewAuthService(&config.Config{JWTSecret: "another-secret", JWTExpiry: time.Hour}, newFakeRedis())
	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = auth.ValidateToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 1}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = auth.ValidateToken(none)
	assert.Error(t, err)
}
