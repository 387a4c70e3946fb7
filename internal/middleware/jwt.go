// Package middleware provides the request-processing chain shared by
// the protected routes: bearer-token authentication, authority
// enforcement and login throttling.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/auth"
)

// Context keys set by JWTAuth for downstream handlers.
const (
	CtxUserID      = "user_id"
	CtxUsername    = "username"
	CtxAuthorities = "authorities"
)

// JWTAuth validates a Bearer access token and injects the subject,
// username and authority claims into the request context. Refresh
// tokens are rejected here; they are only redeemable at the refresh
// endpoint.
func JWTAuth(codec *auth.TokenCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := codec.ParseAndVerify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrTokenExpired.Message, "code": auth.ErrTokenExpired.Code})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrInvalidToken.Message, "code": auth.ErrInvalidToken.Code})
			}
			if claims.Refresh {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": auth.ErrInvalidToken.Message, "code": auth.ErrInvalidToken.Code})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxUsername, claims.Username)
			c.Set(CtxAuthorities, claims.Authorities)
			return next(c)
		}
	}
}

// ActorID returns the authenticated user's id from the context.
func ActorID(c echo.Context) uint64 {
	if id, ok := c.Get(CtxUserID).(uint64); ok {
		return id
	}
	return 0
}

// Username returns the authenticated user's username.
func Username(c echo.Context) string {
	if name, ok := c.Get(CtxUsername).(string); ok {
		return name
	}
	return ""
}

// Authorities returns the authenticated user's authority list.
func Authorities(c echo.Context) []string {
	if a, ok := c.Get(CtxAuthorities).([]string); ok {
		return a
	}
	return nil
}
