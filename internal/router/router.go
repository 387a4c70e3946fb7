// Package router wires the HTTP endpoints to their handlers and hangs
// the authentication, authority and throttling middleware on the right
// groups.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/handler"
	"github.com/iliyamo/user-management/internal/middleware"
)

// Handlers bundles the endpoint handlers for registration.
type Handlers struct {
	Auth  *handler.AuthHandler
	Users *handler.UserHandler
	Roles *handler.RoleHandler
}

// Register attaches every route to e. The credential endpoints sit
// behind the login limiter; everything under /api/users and /api/roles
// requires a valid access token, and the admin surface additionally
// requires the ADMIN authority.
func Register(e *echo.Echo, db *sql.DB, codec *auth.TokenCodec, rdb *redis.Client, limiter middleware.LoginLimiterConfig, h Handlers) {
	e.GET("/health", handler.Health(db))

	jwtAuth := middleware.JWTAuth(codec)
	adminOnly := middleware.RequireAuthority(auth.RoleAdmin)
	throttle := middleware.LoginLimiter(rdb, limiter)

	authGroup := e.Group("/api/auth")
	authGroup.POST("/register", h.Auth.Register, throttle)
	authGroup.POST("/login", h.Auth.Login, throttle)
	authGroup.POST("/refresh", h.Auth.Refresh)
	authGroup.GET("/check-username", h.Auth.CheckUsername)
	authGroup.GET("/check-email", h.Auth.CheckEmail)
	authGroup.GET("/validate", h.Auth.Validate, jwtAuth)

	users := e.Group("/api/users", jwtAuth)
	users.GET("/me", h.Users.Me)
	users.PUT("/me", h.Users.UpdateMe)
	users.PUT("/me/password", h.Users.ChangePassword)

	admin := users.Group("", adminOnly)
	admin.POST("", h.Users.Create)
	admin.GET("", h.Users.List)
	admin.GET("/statistics", h.Users.Statistics)
	admin.PUT("/status", h.Users.BatchUpdateStatus)
	admin.GET("/:id", h.Users.Get)
	admin.PUT("/:id/status", h.Users.UpdateStatus)
	admin.PUT("/:id/password", h.Users.ResetPassword)
	admin.DELETE("/:id", h.Users.Delete)
	admin.GET("/:id/roles", h.Roles.UserRoles)
	admin.PUT("/:id/roles", h.Roles.AssignRoles)
	admin.POST("/:id/roles/:roleId", h.Roles.AddRole)
	admin.DELETE("/:id/roles/:roleId", h.Roles.RemoveRole)

	roles := e.Group("/api/roles", jwtAuth, adminOnly)
	roles.GET("", h.Roles.List)
	roles.POST("", h.Roles.Create)
	roles.DELETE("", h.Roles.BatchDelete)
	roles.GET("/check-name", h.Roles.CheckName)
	roles.GET("/:id", h.Roles.Get)
	roles.PUT("/:id", h.Roles.Update)
	roles.DELETE("/:id", h.Roles.Delete)
	roles.GET("/:id/can-delete", h.Roles.CanDelete)
	roles.GET("/:id/usage", h.Roles.Usage)
	roles.GET("/:id/users", h.Roles.UsersWithRole)
}
