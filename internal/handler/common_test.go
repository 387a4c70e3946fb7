package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/user-management/internal/auth"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[string]int{
		auth.ErrInvalidCredentials.Code:      http.StatusUnauthorized,
		auth.ErrTokenExpired.Code:            http.StatusUnauthorized,
		auth.ErrAccountDisabled.Code:         http.StatusForbidden,
		auth.ErrAccessDenied.Code:            http.StatusForbidden,
		auth.ErrUserNotFound.Code:            http.StatusNotFound,
		auth.ErrRoleNotFound.Code:            http.StatusNotFound,
		auth.ErrUsernameExists.Code:          http.StatusConflict,
		auth.ErrCannotDeleteRoleInUse.Code:   http.StatusConflict,
		auth.ErrCannotDisableSelf.Code:       http.StatusBadRequest,
		auth.ErrInvalidCurrentPassword.Code:  http.StatusBadRequest,
		auth.ErrValidation.Code:              http.StatusBadRequest,
		auth.ErrInternal.Code:                http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, httpStatus(code), code)
	}
}

func newTestContext() (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWriteErrorKeepsDetailMessage(t *testing.T) {
	c, rec := newTestContext()
	assert.NoError(t, writeError(c, auth.RoleInUse(3)))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "3 user(s)")
	assert.Contains(t, rec.Body.String(), auth.ErrCannotDeleteRoleInUse.Code)
}

func TestWriteErrorHidesUnknownErrors(t *testing.T) {
	c, rec := newTestContext()
	assert.NoError(t, writeError(c, errors.New("driver: connection reset")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestPathID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")

	c.SetParamValues("17")
	id, ok := pathID(c, "id")
	assert.True(t, ok)
	assert.Equal(t, uint64(17), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		c.SetParamValues(bad)
		_, ok := pathID(c, "id")
		assert.False(t, ok, bad)
	}
}
