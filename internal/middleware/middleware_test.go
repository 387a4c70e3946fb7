package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/middleware"
)

func newCodec() *auth.TokenCodec {
	return auth.NewTokenCodec("test-secret", 15*time.Minute, 24*time.Hour)
}

func doRequest(t *testing.T, mw echo.MiddlewareFunc, token string, next echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	err := mw(next)(c)
	assert.NoError(t, err)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	codec := newCodec()
	token, _, err := codec.IssueAccess(42, "alice", []string{"USER", "ADMIN"})
	assert.NoError(t, err)

	rec := doRequest(t, middleware.JWTAuth(codec), token, func(c echo.Context) error {
		assert.Equal(t, uint64(42), middleware.ActorID(c))
		assert.Equal(t, "alice", middleware.Username(c))
		assert.Equal(t, []string{"USER", "ADMIN"}, middleware.Authorities(c))
		return c.NoContent(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTAuthRejections(t *testing.T) {
	codec := newCodec()
	notCalled := func(c echo.Context) error {
		t.Fatal("handler must not run")
		return nil
	}

	// no Authorization header
	rec := doRequest(t, middleware.JWTAuth(codec), "", notCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// garbage token
	rec = doRequest(t, middleware.JWTAuth(codec), "garbage", notCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// a refresh token is not valid on the access path
	refresh, _, err := codec.IssueRefresh(42)
	assert.NoError(t, err)
	rec = doRequest(t, middleware.JWTAuth(codec), refresh, notCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// expired access token
	stale := auth.NewTokenCodec("test-secret", -time.Minute, 24*time.Hour)
	expired, _, err := stale.IssueAccess(42, "alice", nil)
	assert.NoError(t, err)
	rec = doRequest(t, middleware.JWTAuth(codec), expired, notCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.ErrTokenExpired.Code)
}

func TestRequireAuthority(t *testing.T) {
	codec := newCodec()
	chain := func(token string) *httptest.ResponseRecorder {
		guarded := middleware.JWTAuth(codec)(func(c echo.Context) error {
			return middleware.RequireAuthority(auth.RoleAdmin)(func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			})(c)
		})
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		err := guarded(e.NewContext(req, rec))
		assert.NoError(t, err)
		return rec
	}

	admin, _, err := codec.IssueAccess(1, "root", []string{"USER", "ADMIN"})
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, chain(admin).Code)

	plain, _, err := codec.IssueAccess(2, "alice", []string{"USER"})
	assert.NoError(t, err)
	rec := chain(plain)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.ErrAccessDenied.Code)
}

func TestLoginLimiterPassesThroughWithoutRedis(t *testing.T) {
	mw := middleware.LoginLimiter(nil, middleware.LoginLimiterConfig{Enabled: true, Capacity: 1, Refill: 1, TTL: time.Minute})
	rec := doRequest(t, mw, "", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}
