package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/user-management/internal/auth"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validateUsername enforces the 3-50 character bound on a trimmed name.
// Bounds count characters, not bytes, so multibyte names measure the
// same as ASCII ones.
func validateUsername(username string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(username))
	if n < 3 || n > 50 {
		return auth.Invalid("username must be between 3 and 50 characters")
	}
	return nil
}

func validateEmail(email string) error {
	if utf8.RuneCountInString(email) > 100 || !emailRx.MatchString(email) {
		return auth.ErrInvalidEmail
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return auth.ErrInvalidPassword
	}
	return nil
}
