package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/iliyamo/user-management/internal/auth"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		username      VARCHAR(50)  NOT NULL,
		email         VARCHAR(100) NOT NULL,
		password_hash VARCHAR(100) NOT NULL,
		status        TINYINT      NOT NULL DEFAULT 1,
		last_login_at DATETIME     NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_username (username),
		UNIQUE KEY uniq_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS roles (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		name        VARCHAR(50)  NOT NULL,
		description VARCHAR(255) NOT NULL DEFAULT '',
		created_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uniq_role_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS user_roles (
		user_id    BIGINT UNSIGNED NOT NULL,
		role_id    BIGINT UNSIGNED NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, role_id),
		KEY idx_user_roles_role (role_id),
		CONSTRAINT fk_user_roles_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_user_roles_role FOREIGN KEY (role_id) REFERENCES roles (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Bootstrap creates the schema when absent and seeds the built-in
// roles plus the initial admin account. It is idempotent and safe to
// run on every startup.
func Bootstrap(ctx context.Context, db *sql.DB, adminUsername, adminEmail, adminPassword string, bcryptCost int) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}

	seedRoles := []struct{ name, description string }{
		{auth.RoleUser, "Default role for registered users"},
		{auth.RoleAdmin, "Full administrative access"},
	}
	for _, r := range seedRoles {
		_, err := db.ExecContext(ctx,
			`INSERT IGNORE INTO roles (name, description) VALUES (?, ?)`,
			r.name, r.description)
		if err != nil {
			return fmt.Errorf("bootstrap seed role %s: %w", r.name, err)
		}
	}

	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE username = ?`, adminUsername).Scan(&count)
	if err != nil {
		return fmt.Errorf("bootstrap check admin: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(adminPassword, bcryptCost)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, status) VALUES (?, ?, ?, 1)`,
		adminUsername, adminEmail, hash)
	if err != nil {
		return fmt.Errorf("bootstrap seed admin: %w", err)
	}
	adminID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role_id)
		 SELECT ?, r.id FROM roles r WHERE r.name IN (?, ?)`,
		adminID, auth.RoleUser, auth.RoleAdmin)
	if err != nil {
		return fmt.Errorf("bootstrap assign admin roles: %w", err)
	}

	log.Printf("bootstrap: seeded admin account %q", adminUsername)
	return nil
}
