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

// UserService covers profile self-service and the admin account
// management surface. Every admin mutation checks the self-protection
// rule first, then the target's existence, then performs the change.
type UserService struct {
	users      UserStore
	roles      RoleStore
	ledger     LedgerStore
	audit      AuditSink
	bcryptCost int
}

func NewUserService(users UserStore, roles RoleStore, ledger LedgerStore, audit AuditSink, bcryptCost int) *UserService {
	return &UserService{users: users, roles: roles, ledger: ledger, audit: audit, bcryptCost: bcryptCost}
}

func (s *UserService) loadUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.FindByIDWithRoles(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, auth.ErrUserNotFound
		}
		return model.User{}, err
	}
	return u, nil
}

// Profile returns the public projection of a user.
func (s *UserService) Profile(ctx context.Context, userID uint64) (model.Profile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return u.Profile(), nil
}

// UpdateProfileInput carries the optional profile fields; nil means
// keep the current value.
type UpdateProfileInput struct {
	Username *string
	Email    *string
}

// UpdateProfile changes username and/or email after checking that the
// new values are not held by any other user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint64, in UpdateProfileInput) (model.Profile, error) {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}

	username, email := u.Username, u.Email
	changed := false
	if in.Username != nil && strings.TrimSpace(*in.Username) != u.Username {
		username = strings.TrimSpace(*in.Username)
		if err := validateUsername(username); err != nil {
			return model.Profile{}, err
		}
		if n, err := s.users.CountByUsernameExcludingID(ctx, username, userID); err != nil {
			return model.Profile{}, err
		} else if n > 0 {
			return model.Profile{}, auth.ErrUsernameExists
		}
		changed = true
	}
	if in.Email != nil && strings.ToLower(strings.TrimSpace(*in.Email)) != u.Email {
		email = strings.ToLower(strings.TrimSpace(*in.Email))
		if err := validateEmail(email); err != nil {
			return model.Profile{}, err
		}
		if n, err := s.users.CountByEmailExcludingID(ctx, email, userID); err != nil {
			return model.Profile{}, err
		} else if n > 0 {
			return model.Profile{}, auth.ErrEmailExists
		}
		changed = true
	}

	if changed {
		if err := s.users.UpdateProfile(ctx, userID, username, email); err != nil {
			return model.Profile{}, err
		}
	}
	updated, err := s.loadUser(ctx, userID)
	if err != nil {
		return model.Profile{}, err
	}
	return updated.Profile(), nil
}

// ChangePassword is the self-service path: it requires proving the
// current password before accepting the new one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint64, current, newPassword string) error {
	u, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(u.PasswordHash, current) {
		return auth.ErrInvalidCurrentPassword
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// CreateUserInput is the admin create-user request.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Status   int
	RoleIDs  []uint64
}

// CreateUser is the admin creation path: explicit status and role set.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput, actorID uint64) (model.Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateUsername(in.Username); err != nil {
		return model.Profile{}, err
	}
	if err := validateEmail(in.Email); err != nil {
		return model.Profile{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return model.Profile{}, err
	}
	if in.Status != model.StatusEnabled && in.Status != model.StatusDisabled {
		return model.Profile{}, auth.Invalid("status must be 0 or 1")
	}

	if n, err := s.users.CountByUsername(ctx, in.Username); err != nil {
		return model.Profile{}, err
	} else if n > 0 {
		return model.Profile{}, auth.ErrUsernameExists
	}
	if n, err := s.users.CountByEmail(ctx, in.Email); err != nil {
		return model.Profile{}, err
	} else if n > 0 {
		return model.Profile{}, auth.ErrEmailExists
	}
	for _, roleID := range in.RoleIDs {
		if _, err := s.roles.FindByID(ctx, roleID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.Profile{}, auth.ErrRoleNotFound
			}
			return model.Profile{}, err
		}
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.Profile{}, err
	}
	u := model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Status:       in.Status,
	}
	if err := s.users.Insert(ctx, &u); err != nil {
		return model.Profile{}, err
	}
	if len(in.RoleIDs) > 0 {
		if err := s.ledger.Replace(ctx, u.ID, dedupe(in.RoleIDs)); err != nil {
			return model.Profile{}, err
		}
	}

	created, err := s.loadUser(ctx, u.ID)
	if err != nil {
		return model.Profile{}, err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserCreated,
		UserID:   created.ID,
		Username: created.Username,
		ActorID:  actorID,
	})
	return created.Profile(), nil
}

// GetUser returns a user's projection for the admin detail view.
func (s *UserService) GetUser(ctx context.Context, userID uint64) (model.Profile, error) {
	return s.Profile(ctx, userID)
}

// Page is one page of user projections.
type Page struct {
	Items []model.Profile `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

// List returns a filtered, paged user listing. page is 1-based; size is
// clamped to [1,100].
func (s *UserService) List(ctx context.Context, page, size int, search string, status *int, roleID *uint64) (Page, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	if size > 100 {
		size = 100
	}
	users, total, err := s.users.List(ctx, page, size, search, status, roleID)
	if err != nil {
		return Page{}, err
	}
	items := make([]model.Profile, 0, len(users))
	for i := range users {
		items = append(items, users[i].Profile())
	}
	return Page{Items: items, Total: total, Page: page, Size: size}, nil
}

// UpdateStatus enables or disables an account. An actor can never
// disable themself.
func (s *UserService) UpdateStatus(ctx context.Context, targetID uint64, status int, actorID uint64) error {
	if targetID == actorID && status == model.StatusDisabled {
		return auth.ErrCannotDisableSelf
	}
	if status != model.StatusEnabled && status != model.StatusDisabled {
		return auth.Invalid("status must be 0 or 1")
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.users.UpdateStatus(ctx, targetID, status); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserStatusChanged,
		UserID:   targetID,
		Username: target.Username,
		ActorID:  actorID,
		Detail:   fmt.Sprintf("status=%d", status),
	})
	return nil
}

// BatchUpdateStatus applies one status to a set of accounts. The
// self-protection check runs against the whole id set before any write:
// if the actor appears in a disabling batch, nothing is applied.
func (s *UserService) BatchUpdateStatus(ctx context.Context, userIDs []uint64, status int, actorID uint64) error {
	if status != model.StatusEnabled && status != model.StatusDisabled {
		return auth.Invalid("status must be 0 or 1")
	}
	if status == model.StatusDisabled {
		for _, id := range userIDs {
			if id == actorID {
				return auth.ErrCannotDisableSelf
			}
		}
	}
	for _, id := range userIDs {
		if err := s.users.UpdateStatus(ctx, id, status); err != nil {
			return err
		}
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:    queue.EventUserStatusChanged,
		ActorID: actorID,
		Detail:  fmt.Sprintf("batch status=%d count=%d", status, len(userIDs)),
	})
	return nil
}

// ResetPassword is the admin reset path. Admins must use the
// change-password flow for their own account, so resetting yourself is
// rejected outright.
func (s *UserService) ResetPassword(ctx context.Context, targetID uint64, newPassword string, actorID uint64) error {
	if targetID == actorID {
		return auth.ErrInvalidOperation
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, targetID, hash); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserPasswordReset,
		UserID:   targetID,
		Username: target.Username,
		ActorID:  actorID,
	})
	return nil
}

// Delete removes an account and its ledger entries. An actor can never
// delete themself.
func (s *UserService) Delete(ctx context.Context, targetID, actorID uint64) error {
	if targetID == actorID {
		return auth.ErrCannotDeleteSelf
	}
	target, err := s.loadUser(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserDeleted,
		UserID:   targetID,
		Username: target.Username,
		ActorID:  actorID,
	})
	return nil
}

// Statistics summarises account state counts.
func (s *UserService) Statistics(ctx context.Context) (model.Statistics, error) {
	total, enabled, disabled, err := s.users.Counts(ctx)
	if err != nil {
		return model.Statistics{}, err
	}
	stats := model.Statistics{
		TotalUsers:    total,
		EnabledUsers:  enabled,
		DisabledUsers: disabled,
	}
	if total > 0 {
		stats.EnabledPercentage = float64(enabled) / float64(total) * 100
	}
	return stats, nil
}

// dedupe collapses duplicate ids, preserving first-seen order.
func dedupe(ids []uint64) []uint64 {
	seen := make(map[uint64]bool, len(ids))
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
