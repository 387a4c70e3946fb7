package model

import "time"

// Status values for the users.status column.
const (
	StatusDisabled = 0
	StatusEnabled  = 1
)

// User mirrors a row of the `users` table plus the roles joined in from
// `user_roles`. The password hash stays internal; outward responses go
// through Profile() which never includes it.
type User struct {
	ID           uint64
	Username     string
	Email        string
	PasswordHash string
	Status       int
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Roles        []Role
}

func (u *User) Enabled() bool { return u.Status == StatusEnabled }

// RoleNames returns the user's role names in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Profile is the public projection of a user returned by the API.
type Profile struct {
	ID          uint64     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	Status      int        `json:"status"`
	Roles       []string   `json:"roles"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Status:      u.Status,
		Roles:       u.RoleNames(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// Role mirrors a row of the `roles` table.
type Role struct {
	ID          uint64    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserRole is one entry of the user↔role assignment ledger. The
// (UserID, RoleID) pair is unique.
type UserRole struct {
	UserID    uint64
	RoleID    uint64
	CreatedAt time.Time
}

// Statistics summarises account state counts for the admin endpoints.
type Statistics struct {
	TotalUsers        int64   `json:"total_users"`
	EnabledUsers      int64   `json:"enabled_users"`
	DisabledUsers     int64   `json:"disabled_users"`
	EnabledPercentage float64 `json:"enabled_percentage"`
}
