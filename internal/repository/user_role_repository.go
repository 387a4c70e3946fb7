package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/user-management/internal/auth"
)

// UserRoleRepo maintains the user↔role assignment ledger backed by the
// `user_roles` table. The (user_id, role_id) pair is the primary key,
// so duplicate assignments are rejected by the database even when two
// requests race past the existence check.
type UserRoleRepo struct{ DB *sql.DB }

func NewUserRoleRepo(db *sql.DB) *UserRoleRepo { return &UserRoleRepo{DB: db} }

// Replace swaps the user's entire role set for roleIDs. Delete-all and
// batch-insert run in one transaction so a concurrent Replace on the
// same user can never observe a half-written set. An empty roleIDs
// leaves the user with no roles.
func (r *UserRoleRepo) Replace(ctx context.Context, userID uint64, roleIDs []uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", userID); err != nil {
		return err
	}
	if len(roleIDs) > 0 {
		q := "INSERT INTO user_roles (user_id, role_id) VALUES " +
			strings.TrimSuffix(strings.Repeat("(?,?),", len(roleIDs)), ",")
		args := make([]any, 0, 2*len(roleIDs))
		for _, roleID := range roleIDs {
			args = append(args, userID, roleID)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Add inserts one assignment; an existing pair fails with
// ROLE_ALREADY_ASSIGNED via the primary-key constraint.
func (r *UserRoleRepo) Add(ctx context.Context, userID, roleID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) VALUES (?,?)", userID, roleID)
	if err != nil && dupKey(err, "PRIMARY") {
		return auth.ErrRoleAlreadyAssigned
	}
	return err
}

// Remove deletes one assignment and fails with ROLE_NOT_ASSIGNED when
// the pair does not exist.
func (r *UserRoleRepo) Remove(ctx context.Context, userID, roleID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM user_roles WHERE user_id=? AND role_id=?", userID, roleID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrRoleNotAssigned
	}
	return nil
}

func (r *UserRoleRepo) CountPair(ctx context.Context, userID, roleID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_roles WHERE user_id=? AND role_id=?", userID, roleID).Scan(&n)
	return n, err
}

func (r *UserRoleRepo) FindUserIDsByRole(ctx context.Context, roleID uint64) ([]uint64, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT user_id FROM user_roles WHERE role_id=? ORDER BY user_id", roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AssignDefault grants the mandatory USER role to a fresh registration.
// Fails with ROLE_NOT_FOUND when the seed role is missing.
func (r *UserRoleRepo) AssignDefault(ctx context.Context, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO user_roles (user_id, role_id) SELECT ?, r.id FROM roles r WHERE r.name=?",
		userID, auth.RoleUser)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrRoleNotFound
	}
	return nil
}
