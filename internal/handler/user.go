package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/middleware"
	"github.com/iliyamo/user-management/internal/service"
)

// UserHandler exposes profile self-service and the admin account
// management endpoints.
type UserHandler struct {
	users *service.UserService
}

func NewUserHandler(users *service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.users.Profile(ctx, middleware.ActorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// UpdateMe handles PUT /api/users/me.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.users.UpdateProfile(ctx, middleware.ActorID(c), service.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles PUT /api/users/me/password.
func (h *UserHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.users.ChangePassword(ctx, middleware.ActorID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password changed"})
}

type createUserRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Status   int      `json:"status"`
	RoleIDs  []uint64 `json:"role_ids"`
}

// Create handles POST /api/users.
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.users.CreateUser(ctx, service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Status:   req.Status,
		RoleIDs:  req.RoleIDs,
	}, middleware.ActorID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, profile)
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	profile, err := h.users.GetUser(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, profile)
}

// List handles GET /api/users with page, size, search, status and
// role_id query filters.
func (h *UserHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))

	var status *int
	if raw := c.QueryParam("status"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return badRequest(c, "invalid status filter")
		}
		status = &v
	}
	var roleID *uint64
	if raw := c.QueryParam("role_id"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return badRequest(c, "invalid role_id filter")
		}
		roleID = &v
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	result, err := h.users.List(ctx, page, size, c.QueryParam("search"), status, roleID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

type updateStatusRequest struct {
	Status int `json:"status"`
}

// UpdateStatus handles PUT /api/users/:id/status.
func (h *UserHandler) UpdateStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.users.UpdateStatus(ctx, id, req.Status, middleware.ActorID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated"})
}

type batchStatusRequest struct {
	UserIDs []uint64 `json:"user_ids"`
	Status  int      `json:"status"`
}

// BatchUpdateStatus handles PUT /api/users/status.
func (h *UserHandler) BatchUpdateStatus(c echo.Context) error {
	var req batchStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.UserIDs) == 0 {
		return badRequest(c, "user_ids must not be empty")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.users.BatchUpdateStatus(ctx, req.UserIDs, req.Status, middleware.ActorID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "status updated", "count": len(req.UserIDs)})
}

type resetPasswordRequest struct {
	NewPassword string `json:"new_password"`
}

// ResetPassword handles PUT /api/users/:id/password.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.users.ResetPassword(ctx, id, req.NewPassword, middleware.ActorID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password reset"})
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.users.Delete(ctx, id, middleware.ActorID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user deleted"})
}

// Statistics handles GET /api/users/statistics.
func (h *UserHandler) Statistics(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.users.Statistics(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
