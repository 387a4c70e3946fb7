// Package service composes the auth core into the login, registration,
// refresh and account-management flows. It is the only layer that talks
// to the persistence collaborators, which it consumes through the store
// interfaces below (satisfied by the repository types; tests substitute
// in-memory fakes).
package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
)

// UserStore is the persistence surface for user rows.
type UserStore interface {
	FindByUsernameWithRoles(ctx context.Context, username string) (model.User, error)
	FindByIDWithRoles(ctx context.Context, id uint64) (model.User, error)
	CountByUsername(ctx context.Context, username string) (int, error)
	CountByEmail(ctx context.Context, email string) (int, error)
	CountByUsernameExcludingID(ctx context.Context, username string, id uint64) (int, error)
	CountByEmailExcludingID(ctx context.Context, email string, id uint64) (int, error)
	Insert(ctx context.Context, u *model.User) error
	UpdateStatus(ctx context.Context, id uint64, status int) error
	UpdatePassword(ctx context.Context, id uint64, passwordHash string) error
	UpdateProfile(ctx context.Context, id uint64, username, email string) error
	UpdateLastLogin(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
	List(ctx context.Context, page, size int, search string, status *int, roleID *uint64) ([]model.User, int64, error)
	Counts(ctx context.Context) (total, enabled, disabled int64, err error)
}

// RoleStore is the persistence surface for role rows.
type RoleStore interface {
	FindAll(ctx context.Context) ([]model.Role, error)
	FindByID(ctx context.Context, id uint64) (model.Role, error)
	FindByName(ctx context.Context, name string) (model.Role, error)
	CountByName(ctx context.Context, name string) (int, error)
	CountByNameExcludingID(ctx context.Context, name string, id uint64) (int, error)
	Insert(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uint64) error
	CountUsersWithRole(ctx context.Context, roleID uint64) (int, error)
	FindByUserID(ctx context.Context, userID uint64) ([]model.Role, error)
}

// LedgerStore is the persistence surface for the user↔role ledger.
type LedgerStore interface {
	Replace(ctx context.Context, userID uint64, roleIDs []uint64) error
	Add(ctx context.Context, userID, roleID uint64) error
	Remove(ctx context.Context, userID, roleID uint64) error
	CountPair(ctx context.Context, userID, roleID uint64) (int, error)
	FindUserIDsByRole(ctx context.Context, roleID uint64) ([]uint64, error)
	AssignDefault(ctx context.Context, userID uint64) error
}

// AuditSink receives lifecycle events. Publishing is best-effort and
// must never fail a request.
type AuditSink interface {
	Publish(ctx context.Context, event queue.UserEvent) error
}

// emit publishes an audit event, logging and dropping any failure.
func emit(ctx context.Context, sink AuditSink, ev queue.UserEvent) {
	if sink == nil {
		return
	}
	ev.OccurredAt = time.Now().UTC().Format(time.RFC3339)
	if err := sink.Publish(ctx, ev); err != nil {
		log.Printf("audit: publish %s failed: %v", ev.Type, err)
	}
}
