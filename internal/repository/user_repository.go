package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
)

const userColumns = "id,username,email,password_hash,status,last_login_at,created_at,updated_at"

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u         model.User
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Status,
		&lastLogin, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return u, nil
}

// loadRoles attaches the user's current role set, ordered by role id.
func (r *UserRepo) loadRoles(ctx context.Context, u *model.User) error {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id,r.name,r.description,r.created_at,r.updated_at
		 FROM roles r JOIN user_roles ur ON ur.role_id=r.id
		 WHERE ur.user_id=? ORDER BY r.id`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			role model.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return err
		}
		role.Description = desc.String
		u.Roles = append(u.Roles, role)
	}
	return rows.Err()
}

// FindByUsernameWithRoles fetches a user and their role set by
// normalized username. Returns sql.ErrNoRows when absent.
func (r *UserRepo) FindByUsernameWithRoles(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", username))
	if err != nil {
		return model.User{}, err
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

// FindByIDWithRoles fetches a user and their role set by id.
func (r *UserRepo) FindByIDWithRoles(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if err != nil {
		return model.User{}, err
	}
	if err := r.loadRoles(ctx, &u); err != nil {
		return model.User{}, err
	}
	return u, nil
}

func (r *UserRepo) CountByUsername(ctx context.Context, username string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=?", username).Scan(&n)
	return n, err
}

func (r *UserRepo) CountByEmail(ctx context.Context, email string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=?", email).Scan(&n)
	return n, err
}

func (r *UserRepo) CountByUsernameExcludingID(ctx context.Context, username string, id uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE username=? AND id<>?", username, id).Scan(&n)
	return n, err
}

func (r *UserRepo) CountByEmailExcludingID(ctx context.Context, email string, id uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE email=? AND id<>?", email, id).Scan(&n)
	return n, err
}

// Insert creates a user row and fills in the generated id. Duplicate
// username/email keys come back as the matching exists-error even when
// the pre-insert checks raced with a concurrent registration.
func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username,email,password_hash,status) VALUES (?,?,?,?)",
		u.Username, u.Email, u.PasswordHash, u.Status)
	if err != nil {
		switch {
		case dupKey(err, "uniq_username"):
			return auth.ErrUsernameExists
		case dupKey(err, "uniq_email"):
			return auth.ErrEmailExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id uint64, status int) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET status=?, updated_at=NOW() WHERE id=?", status, id)
	return err
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uint64, passwordHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=NOW() WHERE id=?", passwordHash, id)
	return err
}

func (r *UserRepo) UpdateProfile(ctx context.Context, id uint64, username, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET username=?, email=?, updated_at=NOW() WHERE id=?", username, email, id)
	if err != nil {
		switch {
		case dupKey(err, "uniq_username"):
			return auth.ErrUsernameExists
		case dupKey(err, "uniq_email"):
			return auth.ErrEmailExists
		}
	}
	return err
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET last_login_at=NOW() WHERE id=?", id)
	return err
}

// Delete removes a user and their ledger entries in one transaction.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_roles WHERE user_id=?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// List returns one page of users plus the total row count. search
// matches username or email as a substring; status and roleID are
// optional filters (nil means no filter).
func (r *UserRepo) List(ctx context.Context, page, size int, search string, status *int, roleID *uint64) ([]model.User, int64, error) {
	where := "WHERE 1=1"
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where += " AND (u.username LIKE ? OR u.email LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	if status != nil {
		where += " AND u.status=?"
		args = append(args, *status)
	}
	if roleID != nil {
		where += " AND EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id=u.id AND ur.role_id=?)"
		args = append(args, *roleID)
	}

	var total int64
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users u "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT u.id,u.username,u.email,u.password_hash,u.status,u.last_login_at,u.created_at,u.updated_at
	      FROM users u ` + where + " ORDER BY u.id LIMIT ? OFFSET ?"
	args = append(args, size, (page-1)*size)
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var (
			u         model.User
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Status,
			&lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLoginAt = &t
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range users {
		if err := r.loadRoles(ctx, &users[i]); err != nil {
			return nil, 0, err
		}
	}
	return users, total, nil
}

// Counts returns total / enabled / disabled user counts.
func (r *UserRepo) Counts(ctx context.Context) (total, enabled, disabled int64, err error) {
	err = r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status=1),0),
		        COALESCE(SUM(status=0),0)
		 FROM users`).Scan(&total, &enabled, &disabled)
	return total, enabled, disabled, err
}
