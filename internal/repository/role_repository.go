package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
)

const roleColumns = "id,name,description,created_at,updated_at"

type RoleRepo struct{ DB *sql.DB }

func NewRoleRepo(db *sql.DB) *RoleRepo { return &RoleRepo{DB: db} }

func scanRole(row *sql.Row) (model.Role, error) {
	var (
		r    model.Role
		desc sql.NullString
	)
	err := row.Scan(&r.ID, &r.Name, &desc, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Role{}, err
	}
	r.Description = desc.String
	return r, nil
}

func (r *RoleRepo) FindAll(ctx context.Context) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+roleColumns+" FROM roles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var (
			role model.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Description = desc.String
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *RoleRepo) FindByID(ctx context.Context, id uint64) (model.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE id=? LIMIT 1", id))
}

func (r *RoleRepo) FindByName(ctx context.Context, name string) (model.Role, error) {
	return scanRole(r.DB.QueryRowContext(ctx,
		"SELECT "+roleColumns+" FROM roles WHERE name=? LIMIT 1", name))
}

func (r *RoleRepo) CountByName(ctx context.Context, name string) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM roles WHERE name=?", name).Scan(&n)
	return n, err
}

func (r *RoleRepo) CountByNameExcludingID(ctx context.Context, name string, id uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM roles WHERE name=? AND id<>?", name, id).Scan(&n)
	return n, err
}

func (r *RoleRepo) Insert(ctx context.Context, role *model.Role) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO roles (name,description) VALUES (?,?)", role.Name, role.Description)
	if err != nil {
		if dupKey(err, "uniq_role_name") {
			return auth.ErrRoleNameExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	role.ID = uint64(id)
	return nil
}

func (r *RoleRepo) Update(ctx context.Context, role *model.Role) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE roles SET name=?, description=?, updated_at=NOW() WHERE id=?",
		role.Name, role.Description, role.ID)
	if err != nil && dupKey(err, "uniq_role_name") {
		return auth.ErrRoleNameExists
	}
	return err
}

func (r *RoleRepo) Delete(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM roles WHERE id=?", id)
	return err
}

// CountUsersWithRole returns the number of ledger entries referencing
// the role; a role is deletable only when this is zero.
func (r *RoleRepo) CountUsersWithRole(ctx context.Context, roleID uint64) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM user_roles WHERE role_id=?", roleID).Scan(&n)
	return n, err
}

func (r *RoleRepo) FindByUserID(ctx context.Context, userID uint64) ([]model.Role, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id,r.name,r.description,r.created_at,r.updated_at
		 FROM roles r JOIN user_roles ur ON ur.role_id=r.id
		 WHERE ur.user_id=? ORDER BY r.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []model.Role
	for rows.Next() {
		var (
			role model.Role
			desc sql.NullString
		)
		if err := rows.Scan(&role.ID, &role.Name, &desc, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		role.Description = desc.String
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
