// Package handler contains the echo HTTP handlers for the auth, user
// and role endpoints. Handlers bind and validate the transport shape,
// then delegate to the services; every business failure surfaces as a
// coded JSON error.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/auth"
)

// requestTimeout bounds every database-touching request.
const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// httpStatus maps an error code to its HTTP status.
func httpStatus(code string) int {
	switch code {
	case auth.ErrInvalidCredentials.Code,
		auth.ErrInvalidToken.Code,
		auth.ErrTokenExpired.Code:
		return http.StatusUnauthorized
	case auth.ErrAccountDisabled.Code,
		auth.ErrAccessDenied.Code:
		return http.StatusForbidden
	case auth.ErrUserNotFound.Code,
		auth.ErrRoleNotFound.Code:
		return http.StatusNotFound
	case auth.ErrUsernameExists.Code,
		auth.ErrEmailExists.Code,
		auth.ErrRoleNameExists.Code,
		auth.ErrRoleAlreadyAssigned.Code,
		auth.ErrRoleNotAssigned.Code,
		auth.ErrCannotDeleteRoleInUse.Code:
		return http.StatusConflict
	case auth.ErrInternal.Code:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError renders any error as {"error": ..., "code": ...}. Errors
// outside the known taxonomy collapse to a 500 without leaking detail.
func writeError(c echo.Context, err error) error {
	var kind *auth.Error
	if !errors.As(err, &kind) {
		c.Logger().Error(err)
		kind = auth.ErrInternal
	}
	return c.JSON(httpStatus(kind.Code), echo.Map{"error": kind.Message, "code": kind.Code})
}

func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": auth.ErrValidation.Code})
}
