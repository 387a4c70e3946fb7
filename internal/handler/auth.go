package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/middleware"
	"github.com/iliyamo/user-management/internal/service"
)

// AuthHandler exposes the public authentication endpoints plus the
// token validation probe.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Username == "" || req.Password == "" {
		return badRequest(c, "username and password are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	res, err := h.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /api/auth/refresh.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	pair, err := h.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, pair)
}

// Validate handles GET /api/auth/validate. It runs behind JWTAuth, so
// reaching it means the access token checked out.
func (h *AuthHandler) Validate(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"valid":       true,
		"user_id":     middleware.ActorID(c),
		"username":    middleware.Username(c),
		"authorities": middleware.Authorities(c),
	})
}

// CheckUsername handles GET /api/auth/check-username?username=x.
func (h *AuthHandler) CheckUsername(c echo.Context) error {
	username := c.QueryParam("username")
	if username == "" {
		return badRequest(c, "username is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	available, err := h.auth.UsernameAvailable(ctx, username)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": available})
}

// CheckEmail handles GET /api/auth/check-email?email=x.
func (h *AuthHandler) CheckEmail(c echo.Context) error {
	email := c.QueryParam("email")
	if email == "" {
		return badRequest(c, "email is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	available, err := h.auth.EmailAvailable(ctx, email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": available})
}
