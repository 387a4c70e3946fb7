package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/service"
)

func newUserFixture(t *testing.T) (*service.UserService, *memDB, *recorder) {
	t.Helper()
	db := newMemDB()
	db.seedRole(auth.RoleUser, "")
	rec := &recorder{}
	svc := service.NewUserService(&memUsers{db}, &memRoles{db}, &memLedger{db}, rec, testBcryptCost)
	return svc, db, rec
}

func seedUser(t *testing.T, db *memDB, username string, status int) uint64 {
	t.Helper()
	hash, err := auth.HashPassword("password123", testBcryptCost)
	assert.NoError(t, err)
	u := model.User{Username: username, Email: username + "@x.com", PasswordHash: hash, Status: status}
	assert.NoError(t, (&memUsers{db}).Insert(context.Background(), &u))
	return u.ID
}

func TestCannotDisableSelf(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)

	err := svc.UpdateStatus(ctx, admin, model.StatusDisabled, admin)
	assert.ErrorIs(t, err, auth.ErrCannotDisableSelf)
	assert.Equal(t, model.StatusEnabled, db.users[admin].Status)

	// enabling yourself is not destructive and passes
	assert.NoError(t, svc.UpdateStatus(ctx, admin, model.StatusEnabled, admin))
}

func TestUpdateStatus(t *testing.T) {
	svc, db, rec := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	alice := seedUser(t, db, "alice", model.StatusEnabled)

	assert.NoError(t, svc.UpdateStatus(ctx, alice, model.StatusDisabled, admin))
	assert.Equal(t, model.StatusDisabled, db.users[alice].Status)
	assert.Len(t, rec.events, 1)
	assert.Equal(t, queue.EventUserStatusChanged, rec.events[0].Type)

	err := svc.UpdateStatus(ctx, 999, model.StatusDisabled, admin)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	err = svc.UpdateStatus(ctx, alice, 7, admin)
	assert.ErrorIs(t, err, auth.ErrValidation)
}

func TestBatchDisableRejectsWholeBatchWithActor(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	alice := seedUser(t, db, "alice", model.StatusEnabled)
	bob := seedUser(t, db, "bob", model.StatusEnabled)

	err := svc.BatchUpdateStatus(ctx, []uint64{alice, admin, bob}, model.StatusDisabled, admin)
	assert.ErrorIs(t, err, auth.ErrCannotDisableSelf)

	// nothing was partially applied
	assert.Equal(t, model.StatusEnabled, db.users[alice].Status)
	assert.Equal(t, model.StatusEnabled, db.users[bob].Status)

	// an enabling batch may include the actor
	assert.NoError(t, svc.BatchUpdateStatus(ctx, []uint64{alice, admin, bob}, model.StatusEnabled, admin))
}

func TestBatchDisable(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	alice := seedUser(t, db, "alice", model.StatusEnabled)
	bob := seedUser(t, db, "bob", model.StatusEnabled)

	assert.NoError(t, svc.BatchUpdateStatus(ctx, []uint64{alice, bob}, model.StatusDisabled, admin))
	assert.Equal(t, model.StatusDisabled, db.users[alice].Status)
	assert.Equal(t, model.StatusDisabled, db.users[bob].Status)
}

func TestCannotDeleteSelf(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)

	err := svc.Delete(ctx, admin, admin)
	assert.ErrorIs(t, err, auth.ErrCannotDeleteSelf)
	_, ok := db.users[admin]
	assert.True(t, ok)
}

func TestDeleteCascadesLedger(t *testing.T) {
	svc, db, rec := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	alice := seedUser(t, db, "alice", model.StatusEnabled)
	db.pairs[alice] = []uint64{1}

	assert.NoError(t, svc.Delete(ctx, alice, admin))
	_, ok := db.users[alice]
	assert.False(t, ok)
	assert.Empty(t, db.pairs[alice])
	assert.Len(t, rec.events, 1)
	assert.Equal(t, queue.EventUserDeleted, rec.events[0].Type)

	err := svc.Delete(ctx, alice, admin)
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestAdminCannotResetOwnPassword(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)

	err := svc.ResetPassword(ctx, admin, "newpassword", admin)
	assert.ErrorIs(t, err, auth.ErrInvalidOperation)
}

func TestResetPassword(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	alice := seedUser(t, db, "alice", model.StatusEnabled)

	assert.NoError(t, svc.ResetPassword(ctx, alice, "newpassword", admin))
	assert.True(t, auth.VerifyPassword(db.users[alice].PasswordHash, "newpassword"))

	err := svc.ResetPassword(ctx, alice, "short", admin)
	assert.ErrorIs(t, err, auth.ErrInvalidPassword)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", model.StatusEnabled)

	err := svc.ChangePassword(ctx, alice, "wrong", "newpassword")
	assert.ErrorIs(t, err, auth.ErrInvalidCurrentPassword)

	assert.NoError(t, svc.ChangePassword(ctx, alice, "password123", "newpassword"))
	assert.True(t, auth.VerifyPassword(db.users[alice].PasswordHash, "newpassword"))
}

func TestUpdateProfileUniqueness(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice", model.StatusEnabled)
	seedUser(t, db, "bob", model.StatusEnabled)

	name := "bob"
	_, err := svc.UpdateProfile(ctx, alice, service.UpdateProfileInput{Username: &name})
	assert.ErrorIs(t, err, auth.ErrUsernameExists)

	email := "bob@x.com"
	_, err = svc.UpdateProfile(ctx, alice, service.UpdateProfileInput{Email: &email})
	assert.ErrorIs(t, err, auth.ErrEmailExists)

	fresh := "alice2"
	p, err := svc.UpdateProfile(ctx, alice, service.UpdateProfileInput{Username: &fresh})
	assert.NoError(t, err)
	assert.Equal(t, "alice2", p.Username)
}

func TestCreateUserWithRoles(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	admin := seedUser(t, db, "admin", model.StatusEnabled)
	extra := db.seedRole("AUDITOR", "")

	p, err := svc.CreateUser(ctx, service.CreateUserInput{
		Username: "carol",
		Email:    "carol@x.com",
		Password: "password123",
		Status:   model.StatusEnabled,
		RoleIDs:  []uint64{extra.ID, extra.ID}, // duplicates collapse
	}, admin)
	assert.NoError(t, err)
	assert.Equal(t, []string{"AUDITOR"}, p.Roles)

	_, err = svc.CreateUser(ctx, service.CreateUserInput{
		Username: "dave", Email: "dave@x.com", Password: "password123",
		Status: model.StatusEnabled, RoleIDs: []uint64{999},
	}, admin)
	assert.ErrorIs(t, err, auth.ErrRoleNotFound)
}

func TestListAndStatistics(t *testing.T) {
	svc, db, _ := newUserFixture(t)
	ctx := context.Background()
	seedUser(t, db, "admin", model.StatusEnabled)
	seedUser(t, db, "alice", model.StatusEnabled)
	seedUser(t, db, "bob", model.StatusDisabled)

	page, err := svc.List(ctx, 1, 2, "", nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Items, 2)

	disabled := model.StatusDisabled
	page, err = svc.List(ctx, 1, 10, "", &disabled, nil)
	assert.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, "bob", page.Items[0].Username)

	stats, err := svc.Statistics(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.EnabledUsers)
	assert.Equal(t, int64(1), stats.DisabledUsers)
	assert.InDelta(t, 66.6, stats.EnabledPercentage, 1.0)
}
