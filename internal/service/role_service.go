package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
)

// RoleService covers role CRUD and the assignment ledger operations.
type RoleService struct {
	roles  RoleStore
	users  UserStore
	ledger LedgerStore
	audit  AuditSink
}

func NewRoleService(roles RoleStore, users UserStore, ledger LedgerStore, audit AuditSink) *RoleService {
	return &RoleService{roles: roles, users: users, ledger: ledger, audit: audit}
}

func (s *RoleService) loadRole(ctx context.Context, id uint64) (model.Role, error) {
	r, err := s.roles.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Role{}, auth.ErrRoleNotFound
		}
		return model.Role{}, err
	}
	return r, nil
}

func (s *RoleService) List(ctx context.Context) ([]model.Role, error) {
	return s.roles.FindAll(ctx)
}

func (s *RoleService) Get(ctx context.Context, roleID uint64) (model.Role, error) {
	return s.loadRole(ctx, roleID)
}

func (s *RoleService) Create(ctx context.Context, name, description string) (model.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Role{}, auth.Invalid("role name must not be empty")
	}
	if n, err := s.roles.CountByName(ctx, name); err != nil {
		return model.Role{}, err
	} else if n > 0 {
		return model.Role{}, auth.ErrRoleNameExists
	}
	role := model.Role{Name: name, Description: description}
	if err := s.roles.Insert(ctx, &role); err != nil {
		return model.Role{}, err
	}
	return role, nil
}

// UpdateRoleInput carries the optional role fields; nil means keep the
// current value.
type UpdateRoleInput struct {
	Name        *string
	Description *string
}

func (s *RoleService) Update(ctx context.Context, roleID uint64, in UpdateRoleInput) (model.Role, error) {
	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return model.Role{}, err
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) != role.Name {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return model.Role{}, auth.Invalid("role name must not be empty")
		}
		if n, err := s.roles.CountByNameExcludingID(ctx, name, roleID); err != nil {
			return model.Role{}, err
		} else if n > 0 {
			return model.Role{}, auth.ErrRoleNameExists
		}
		role.Name = name
	}
	if in.Description != nil {
		role.Description = *in.Description
	}
	if err := s.roles.Update(ctx, &role); err != nil {
		return model.Role{}, err
	}
	return s.loadRole(ctx, roleID)
}

// Delete removes a role, failing with CANNOT_DELETE_ROLE_IN_USE (and
// the current usage count) while any user still holds it.
func (s *RoleService) Delete(ctx context.Context, roleID uint64) error {
	if _, err := s.loadRole(ctx, roleID); err != nil {
		return err
	}
	n, err := s.roles.CountUsersWithRole(ctx, roleID)
	if err != nil {
		return err
	}
	if n > 0 {
		return auth.RoleInUse(n)
	}
	return s.roles.Delete(ctx, roleID)
}

// BatchDeleteResult is the per-id outcome of a batch role deletion.
type BatchDeleteResult struct {
	RoleID  uint64      `json:"role_id"`
	Deleted bool        `json:"deleted"`
	Error   *auth.Error `json:"error,omitempty"`
}

// BatchDelete processes every id independently; a failure on one role
// neither stops nor hides the others.
func (s *RoleService) BatchDelete(ctx context.Context, roleIDs []uint64) ([]BatchDeleteResult, error) {
	results := make([]BatchDeleteResult, 0, len(roleIDs))
	for _, id := range roleIDs {
		res := BatchDeleteResult{RoleID: id}
		switch err := s.Delete(ctx, id); {
		case err == nil:
			res.Deleted = true
		default:
			var kind *auth.Error
			if !errors.As(err, &kind) {
				return nil, err
			}
			res.Error = kind
		}
		results = append(results, res)
	}
	return results, nil
}

// AssignRoles replaces the user's whole role set atomically. Every role
// id must exist; duplicates in the input collapse to one assignment and
// an empty set clears all roles.
func (s *RoleService) AssignRoles(ctx context.Context, userID uint64, roleIDs []uint64) error {
	user, err := s.users.FindByIDWithRoles(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrUserNotFound
		}
		return err
	}
	roleIDs = dedupe(roleIDs)
	for _, id := range roleIDs {
		if _, err := s.loadRole(ctx, id); err != nil {
			return err
		}
	}
	if err := s.ledger.Replace(ctx, userID, roleIDs); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserRolesChanged,
		UserID:   userID,
		Username: user.Username,
		Detail:   fmt.Sprintf("assigned %d role(s)", len(roleIDs)),
	})
	return nil
}

// AddRole grants one role to a user.
func (s *RoleService) AddRole(ctx context.Context, userID, roleID uint64) error {
	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return err
	}
	if n, err := s.ledger.CountPair(ctx, userID, roleID); err != nil {
		return err
	} else if n > 0 {
		return auth.ErrRoleAlreadyAssigned
	}
	if err := s.ledger.Add(ctx, userID, roleID); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:   queue.EventUserRolesChanged,
		UserID: userID,
		Detail: "added role " + role.Name,
	})
	return nil
}

// RemoveRole revokes one role from a user.
func (s *RoleService) RemoveRole(ctx context.Context, userID, roleID uint64) error {
	role, err := s.loadRole(ctx, roleID)
	if err != nil {
		return err
	}
	if n, err := s.ledger.CountPair(ctx, userID, roleID); err != nil {
		return err
	} else if n == 0 {
		return auth.ErrRoleNotAssigned
	}
	if err := s.ledger.Remove(ctx, userID, roleID); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:   queue.EventUserRolesChanged,
		UserID: userID,
		Detail: "removed role " + role.Name,
	})
	return nil
}

// UserRoles returns the user's current role set.
func (s *RoleService) UserRoles(ctx context.Context, userID uint64) ([]model.Role, error) {
	return s.roles.FindByUserID(ctx, userID)
}

// UserIDsByRole returns the ids of every user holding the role.
func (s *RoleService) UserIDsByRole(ctx context.Context, roleID uint64) ([]uint64, error) {
	return s.ledger.FindUserIDsByRole(ctx, roleID)
}

// CanDelete reports whether no assignment references the role.
func (s *RoleService) CanDelete(ctx context.Context, roleID uint64) (bool, error) {
	n, err := s.roles.CountUsersWithRole(ctx, roleID)
	return n == 0, err
}

// Usage returns the number of users holding the role.
func (s *RoleService) Usage(ctx context.Context, roleID uint64) (int, error) {
	return s.roles.CountUsersWithRole(ctx, roleID)
}

// NameAvailable reports whether no role currently holds name.
func (s *RoleService) NameAvailable(ctx context.Context, name string) (bool, error) {
	n, err := s.roles.CountByName(ctx, strings.TrimSpace(name))
	return n == 0, err
}

// UserHasRole reports whether the user currently holds the named role.
func (s *RoleService) UserHasRole(ctx context.Context, userID uint64, roleName string) (bool, error) {
	roles, err := s.roles.FindByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}
