package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/auth"
)

// RequireAuthority gates a route group on a single authority from the
// access token. Must run after JWTAuth.
func RequireAuthority(name string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := auth.Authorize(name, Authorities(c)); err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"error": auth.ErrAccessDenied.Message, "code": auth.ErrAccessDenied.Code})
			}
			return next(c)
		}
	}
}
