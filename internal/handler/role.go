package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/user-management/internal/service"
)

// RoleHandler exposes role CRUD and the user-role assignment endpoints.
type RoleHandler struct {
	roles *service.RoleService
}

func NewRoleHandler(roles *service.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// List handles GET /api/roles.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.roles.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}

// Get handles GET /api/roles/:id.
func (h *RoleHandler) Get(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.roles.Get(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create handles POST /api/roles.
func (h *RoleHandler) Create(c echo.Context) error {
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.roles.Create(ctx, req.Name, req.Description)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, role)
}

type updateRoleRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update handles PUT /api/roles/:id.
func (h *RoleHandler) Update(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	role, err := h.roles.Update(ctx, id, service.UpdateRoleInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, role)
}

// Delete handles DELETE /api/roles/:id.
func (h *RoleHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.roles.Delete(ctx, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role deleted"})
}

type batchDeleteRequest struct {
	RoleIDs []uint64 `json:"role_ids"`
}

// BatchDelete handles DELETE /api/roles. Each id is processed
// independently and the per-id outcomes are returned together.
func (h *RoleHandler) BatchDelete(c echo.Context) error {
	var req batchDeleteRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if len(req.RoleIDs) == 0 {
		return badRequest(c, "role_ids must not be empty")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	results, err := h.roles.BatchDelete(ctx, req.RoleIDs)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"results": results})
}

// CanDelete handles GET /api/roles/:id/can-delete.
func (h *RoleHandler) CanDelete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ok, err := h.roles.CanDelete(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"can_delete": ok})
}

// Usage handles GET /api/roles/:id/usage.
func (h *RoleHandler) Usage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.roles.Usage(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_count": n})
}

// CheckName handles GET /api/roles/check-name?name=x.
func (h *RoleHandler) CheckName(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return badRequest(c, "name is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	available, err := h.roles.NameAvailable(ctx, name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": available})
}

// UsersWithRole handles GET /api/roles/:id/users.
func (h *RoleHandler) UsersWithRole(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	ids, err := h.roles.UserIDsByRole(ctx, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user_ids": ids})
}

type assignRolesRequest struct {
	RoleIDs []uint64 `json:"role_ids"`
}

// AssignRoles handles PUT /api/users/:id/roles, replacing the user's
// whole role set.
func (h *RoleHandler) AssignRoles(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	var req assignRolesRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.roles.AssignRoles(ctx, userID, req.RoleIDs); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "roles assigned"})
}

// AddRole handles POST /api/users/:id/roles/:roleId.
func (h *RoleHandler) AddRole(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	roleID, ok := pathID(c, "roleId")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.roles.AddRole(ctx, userID, roleID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role added"})
}

// RemoveRole handles DELETE /api/users/:id/roles/:roleId.
func (h *RoleHandler) RemoveRole(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	roleID, ok := pathID(c, "roleId")
	if !ok {
		return badRequest(c, "invalid role id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.roles.RemoveRole(ctx, userID, roleID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "role removed"})
}

// UserRoles handles GET /api/users/:id/roles.
func (h *RoleHandler) UserRoles(c echo.Context) error {
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.roles.UserRoles(ctx, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, roles)
}
