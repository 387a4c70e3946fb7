package service

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/model"
	"github.com/iliyamo/user-management/internal/queue"
)

// AuthService orchestrates login, registration and token refresh.
type AuthService struct {
	users      UserStore
	ledger     LedgerStore
	codec      *auth.TokenCodec
	audit      AuditSink
	bcryptCost int
}

func NewAuthService(users UserStore, ledger LedgerStore, codec *auth.TokenCodec, audit AuditSink, bcryptCost int) *AuthService {
	return &AuthService{users: users, ledger: ledger, codec: codec, audit: audit, bcryptCost: bcryptCost}
}

// TokenPair is the issued access/refresh pair returned by login and
// refresh. TokenType is always "Bearer".
type TokenPair struct {
	AccessToken    string    `json:"access_token"`
	AccessExpires  time.Time `json:"access_expires"`
	RefreshToken   string    `json:"refresh_token"`
	RefreshExpires time.Time `json:"refresh_expires"`
	TokenType      string    `json:"token_type"`
}

// LoginResult bundles the token pair with a snapshot of the user.
type LoginResult struct {
	TokenPair
	User model.Profile `json:"user"`
}

func (s *AuthService) issuePair(u *model.User) (TokenPair, error) {
	access, accessExp, err := s.codec.IssueAccess(u.ID, u.Username, u.RoleNames())
	if err != nil {
		return TokenPair{}, err
	}
	refresh, refreshExp, err := s.codec.IssueRefresh(u.ID)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:    access,
		AccessExpires:  accessExp,
		RefreshToken:   refresh,
		RefreshExpires: refreshExp,
		TokenType:      "Bearer",
	}, nil
}

// Login verifies credentials, rejects disabled accounts and issues a
// token pair. A missing user and a wrong password collapse to the same
// INVALID_CREDENTIALS so usernames cannot be enumerated; the disabled
// state is disclosed deliberately, but only after the password checked
// out.
func (s *AuthService) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := s.users.FindByUsernameWithRoles(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return LoginResult{}, auth.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return LoginResult{}, auth.ErrInvalidCredentials
	}
	if !u.Enabled() {
		return LoginResult{}, auth.ErrAccountDisabled
	}

	pair, err := s.issuePair(&u)
	if err != nil {
		return LoginResult{}, err
	}

	// Best effort: a failed timestamp write must not undo a login.
	if err := s.users.UpdateLastLogin(ctx, u.ID); err != nil {
		log.Printf("login: record last-login for user %d failed: %v", u.ID, err)
	} else {
		now := time.Now().UTC()
		u.LastLoginAt = &now
	}

	return LoginResult{TokenPair: pair, User: u.Profile()}, nil
}

// Register creates an enabled account with the default USER role and
// returns its public projection. Username and email uniqueness are
// pre-checked; the database unique keys remain the backstop for the
// window between check and insert.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (model.Profile, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validateUsername(username); err != nil {
		return model.Profile{}, err
	}
	if err := validateEmail(email); err != nil {
		return model.Profile{}, err
	}
	if err := validatePassword(password); err != nil {
		return model.Profile{}, err
	}

	if n, err := s.users.CountByUsername(ctx, username); err != nil {
		return model.Profile{}, err
	} else if n > 0 {
		return model.Profile{}, auth.ErrUsernameExists
	}
	if n, err := s.users.CountByEmail(ctx, email); err != nil {
		return model.Profile{}, err
	} else if n > 0 {
		return model.Profile{}, auth.ErrEmailExists
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return model.Profile{}, err
	}
	u := model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       model.StatusEnabled,
	}
	if err := s.users.Insert(ctx, &u); err != nil {
		return model.Profile{}, err
	}
	if err := s.ledger.AssignDefault(ctx, u.ID); err != nil {
		// a failed default-role grant must not strand a role-less account
		if delErr := s.users.Delete(ctx, u.ID); delErr != nil {
			log.Printf("register: rollback of user %d failed: %v", u.ID, delErr)
		}
		return model.Profile{}, err
	}

	created, err := s.users.FindByIDWithRoles(ctx, u.ID)
	if err != nil {
		return model.Profile{}, err
	}

	emit(ctx, s.audit, queue.UserEvent{
		Type:     queue.EventUserRegistered,
		UserID:   created.ID,
		Username: created.Username,
	})
	return created.Profile(), nil
}

// Refresh validates a refresh token, re-reads the user and mints a new
// pair from the current role set, so role changes take effect without
// trusting anything the old token carried. A deleted or disabled
// subject fails as USER_NOT_FOUND; the bearer of a stale refresh token
// learns nothing about account state.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := s.codec.ParseAndVerify(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if !claims.Refresh {
		return TokenPair{}, auth.ErrInvalidToken
	}

	u, err := s.users.FindByIDWithRoles(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TokenPair{}, auth.ErrUserNotFound
		}
		return TokenPair{}, err
	}
	if !u.Enabled() {
		return TokenPair{}, auth.ErrUserNotFound
	}
	return s.issuePair(&u)
}

// UsernameAvailable reports whether no user currently holds username.
func (s *AuthService) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	n, err := s.users.CountByUsername(ctx, strings.TrimSpace(username))
	return n == 0, err
}

// EmailAvailable reports whether no user currently holds email.
func (s *AuthService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	n, err := s.users.CountByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	return n == 0, err
}
