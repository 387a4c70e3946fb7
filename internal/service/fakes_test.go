package service_test

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
)

// memDB is shared in-memory state; memUsers, memRoles and memLedger
// wrap it to satisfy the store interfaces the way the SQL repositories
// do, including joining roles in from the ledger on every user read.
type memDB struct {
	users    map[uint64]model.User
	roles    map[uint64]model.Role
	pairs    map[uint64][]uint64 // userID -> roleIDs
	nextUser uint64
	nextRole uint64

	failLastLogin bool
}

func newMemDB() *memDB {
	return &memDB{
		users: map[uint64]model.User{},
		roles: map[uint64]model.Role{},
		pairs: map[uint64][]uint64{},
	}
}

func (db *memDB) seedRole(name, description string) model.Role {
	db.nextRole++
	r := model.Role{ID: db.nextRole, Name: name, Description: description,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	db.roles[r.ID] = r
	return r
}

func (db *memDB) withRoles(u model.User) model.User {
	u.Roles = nil
	ids := append([]uint64(nil), db.pairs[u.ID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if r, ok := db.roles[id]; ok {
			u.Roles = append(u.Roles, r)
		}
	}
	return u
}

func (db *memDB) rolesOf(userID uint64) []model.Role {
	u, ok := db.users[userID]
	if !ok {
		return nil
	}
	return db.withRoles(u).Roles
}

// --- UserStore ---

type memUsers struct{ db *memDB }

func (m *memUsers) FindByUsernameWithRoles(_ context.Context, username string) (model.User, error) {
	for _, u := range m.db.users {
		if u.Username == username {
			return m.db.withRoles(u), nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUsers) FindByIDWithRoles(_ context.Context, id uint64) (model.User, error) {
	u, ok := m.db.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return m.db.withRoles(u), nil
}

func (m *memUsers) CountByUsername(_ context.Context, username string) (int, error) {
	n := 0
	for _, u := range m.db.users {
		if u.Username == username {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) CountByEmail(_ context.Context, email string) (int, error) {
	n := 0
	for _, u := range m.db.users {
		if u.Email == email {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) CountByUsernameExcludingID(_ context.Context, username string, id uint64) (int, error) {
	n := 0
	for _, u := range m.db.users {
		if u.Username == username && u.ID != id {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) CountByEmailExcludingID(_ context.Context, email string, id uint64) (int, error) {
	n := 0
	for _, u := range m.db.users {
		if u.Email == email && u.ID != id {
			n++
		}
	}
	return n, nil
}

func (m *memUsers) Insert(_ context.Context, u *model.User) error {
	m.db.nextUser++
	u.ID = m.db.nextUser
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.db.users[u.ID] = *u
	return nil
}

func (m *memUsers) UpdateStatus(_ context.Context, id uint64, status int) error {
	if u, ok := m.db.users[id]; ok {
		u.Status = status
		u.UpdatedAt = time.Now().UTC()
		m.db.users[id] = u
	}
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uint64, passwordHash string) error {
	if u, ok := m.db.users[id]; ok {
		u.PasswordHash = passwordHash
		u.UpdatedAt = time.Now().UTC()
		m.db.users[id] = u
	}
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uint64, username, email string) error {
	if u, ok := m.db.users[id]; ok {
		u.Username = username
		u.Email = email
		u.UpdatedAt = time.Now().UTC()
		m.db.users[id] = u
	}
	return nil
}

func (m *memUsers) UpdateLastLogin(_ context.Context, id uint64) error {
	if m.db.failLastLogin {
		return errors.New("write failed")
	}
	if u, ok := m.db.users[id]; ok {
		now := time.Now().UTC()
		u.LastLoginAt = &now
		m.db.users[id] = u
	}
	return nil
}

func (m *memUsers) Delete(_ context.Context, id uint64) error {
	delete(m.db.users, id)
	delete(m.db.pairs, id)
	return nil
}

func (m *memUsers) List(_ context.Context, page, size int, search string, status *int, roleID *uint64) ([]model.User, int64, error) {
	ids := make([]uint64, 0, len(m.db.users))
	for id := range m.db.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var matched []model.User
	for _, id := range ids {
		u := m.db.users[id]
		if search != "" && !strings.Contains(u.Username, search) && !strings.Contains(u.Email, search) {
			continue
		}
		if status != nil && u.Status != *status {
			continue
		}
		if roleID != nil {
			has := false
			for _, rid := range m.db.pairs[id] {
				if rid == *roleID {
					has = true
				}
			}
			if !has {
				continue
			}
		}
		matched = append(matched, m.db.withRoles(u))
	}
	total := int64(len(matched))
	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (m *memUsers) Counts(_ context.Context) (total, enabled, disabled int64, err error) {
	for _, u := range m.db.users {
		total++
		if u.Status == model.StatusEnabled {
			enabled++
		} else {
			disabled++
		}
	}
	return total, enabled, disabled, nil
}

// --- RoleStore ---

type memRoles struct{ db *memDB }

func (m *memRoles) FindAll(_ context.Context) ([]model.Role, error) {
	ids := make([]uint64, 0, len(m.db.roles))
	for id := range m.db.roles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]model.Role, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.db.roles[id])
	}
	return out, nil
}

func (m *memRoles) FindByID(_ context.Context, id uint64) (model.Role, error) {
	r, ok := m.db.roles[id]
	if !ok {
		return model.Role{}, sql.ErrNoRows
	}
	return r, nil
}

func (m *memRoles) FindByName(_ context.Context, name string) (model.Role, error) {
	for _, r := range m.db.roles {
		if r.Name == name {
			return r, nil
		}
	}
	return model.Role{}, sql.ErrNoRows
}

func (m *memRoles) CountByName(_ context.Context, name string) (int, error) {
	n := 0
	for _, r := range m.db.roles {
		if r.Name == name {
			n++
		}
	}
	return n, nil
}

func (m *memRoles) CountByNameExcludingID(_ context.Context, name string, id uint64) (int, error) {
	n := 0
	for _, r := range m.db.roles {
		if r.Name == name && r.ID != id {
			n++
		}
	}
	return n, nil
}

func (m *memRoles) Insert(_ context.Context, role *model.Role) error {
	m.db.nextRole++
	role.ID = m.db.nextRole
	role.CreatedAt = time.Now().UTC()
	role.UpdatedAt = role.CreatedAt
	m.db.roles[role.ID] = *role
	return nil
}

func (m *memRoles) Update(_ context.Context, role *model.Role) error {
	if _, ok := m.db.roles[role.ID]; !ok {
		return sql.ErrNoRows
	}
	role.UpdatedAt = time.Now().UTC()
	m.db.roles[role.ID] = *role
	return nil
}

func (m *memRoles) Delete(_ context.Context, id uint64) error {
	delete(m.db.roles, id)
	return nil
}

func (m *memRoles) CountUsersWithRole(_ context.Context, roleID uint64) (int, error) {
	n := 0
	for _, ids := range m.db.pairs {
		for _, id := range ids {
			if id == roleID {
				n++
			}
		}
	}
	return n, nil
}

func (m *memRoles) FindByUserID(_ context.Context, userID uint64) ([]model.Role, error) {
	return m.db.rolesOf(userID), nil
}

// --- LedgerStore ---

type memLedger struct{ db *memDB }

func (m *memLedger) Replace(_ context.Context, userID uint64, roleIDs []uint64) error {
	m.db.pairs[userID] = append([]uint64(nil), roleIDs...)
	return nil
}

func (m *memLedger) Add(_ context.Context, userID, roleID uint64) error {
	for _, id := range m.db.pairs[userID] {
		if id == roleID {
			return auth.ErrRoleAlreadyAssigned
		}
	}
	m.db.pairs[userID] = append(m.db.pairs[userID], roleID)
	return nil
}

func (m *memLedger) Remove(_ context.Context, userID, roleID uint64) error {
	ids := m.db.pairs[userID]
	for i, id := range ids {
		if id == roleID {
			m.db.pairs[userID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return auth.ErrRoleNotAssigned
}

func (m *memLedger) CountPair(_ context.Context, userID, roleID uint64) (int, error) {
	for _, id := range m.db.pairs[userID] {
		if id == roleID {
			return 1, nil
		}
	}
	return 0, nil
}

func (m *memLedger) FindUserIDsByRole(_ context.Context, roleID uint64) ([]uint64, error) {
	var out []uint64
	for userID, ids := range m.db.pairs {
		for _, id := range ids {
			if id == roleID {
				out = append(out, userID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *memLedger) AssignDefault(ctx context.Context, userID uint64) error {
	for _, r := range m.db.roles {
		if r.Name == auth.RoleUser {
			return m.Add(ctx, userID, r.ID)
		}
	}
	return auth.ErrRoleNotFound
}

// recorder collects published audit events.
type recorder struct {
	events []queue.UserEvent
}

func (r *recorder) Publish(_ context.Context, event queue.UserEvent) error {
	r.events = append(r.events, event)
	return nil
}
