// Package auth implements the authentication and authorization core:
// password verification, signed token issuance/validation and the
// business error kinds shared by the service layer.
package auth

import "fmt"

// Error is a business-rule violation with a stable machine-readable code
// and a human-readable message. Handlers translate codes into HTTP
// statuses; everything that is not an *Error is treated as an internal
// fault and never shown to the caller verbatim.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

// Is matches by code so that detail-carrying copies of a kind (for
// example RoleInUse with a usage count) still compare equal under
// errors.Is against the base kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidCredentials     = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid username or password"}
	ErrAccountDisabled        = &Error{Code: "ACCOUNT_DISABLED", Message: "account is disabled"}
	ErrInvalidToken           = &Error{Code: "INVALID_TOKEN", Message: "token is invalid"}
	ErrTokenExpired           = &Error{Code: "TOKEN_EXPIRED", Message: "token has expired"}
	ErrAccessDenied           = &Error{Code: "ACCESS_DENIED", Message: "access denied"}
	ErrUsernameExists         = &Error{Code: "USERNAME_EXISTS", Message: "username already exists"}
	ErrEmailExists            = &Error{Code: "EMAIL_EXISTS", Message: "email already registered"}
	ErrUserNotFound           = &Error{Code: "USER_NOT_FOUND", Message: "user not found"}
	ErrRoleNotFound           = &Error{Code: "ROLE_NOT_FOUND", Message: "role not found"}
	ErrRoleNameExists         = &Error{Code: "ROLE_NAME_EXISTS", Message: "role name already exists"}
	ErrRoleAlreadyAssigned    = &Error{Code: "ROLE_ALREADY_ASSIGNED", Message: "user already has this role"}
	ErrRoleNotAssigned        = &Error{Code: "ROLE_NOT_ASSIGNED", Message: "user does not have this role"}
	ErrCannotDeleteRoleInUse  = &Error{Code: "CANNOT_DELETE_ROLE_IN_USE", Message: "role is in use and cannot be deleted"}
	ErrCannotDisableSelf      = &Error{Code: "CANNOT_DISABLE_SELF", Message: "cannot disable your own account"}
	ErrCannotDeleteSelf       = &Error{Code: "CANNOT_DELETE_SELF", Message: "cannot delete your own account"}
	ErrInvalidOperation       = &Error{Code: "INVALID_OPERATION", Message: "use the change-password endpoint for your own account"}
	ErrInvalidCurrentPassword = &Error{Code: "INVALID_CURRENT_PASSWORD", Message: "current password is incorrect"}
	ErrInvalidEmail           = &Error{Code: "INVALID_EMAIL", Message: "email address is invalid"}
	ErrInvalidPassword        = &Error{Code: "INVALID_PASSWORD", Message: "password must be at least 8 characters"}
	ErrValidation             = &Error{Code: "VALIDATION_ERROR", Message: "validation failed"}
	ErrInternal               = &Error{Code: "INTERNAL_ERROR", Message: "internal error"}
)

// RoleInUse returns a CANNOT_DELETE_ROLE_IN_USE error that carries the
// current number of users holding the role.
func RoleInUse(count int) *Error {
	return &Error{
		Code:    ErrCannotDeleteRoleInUse.Code,
		Message: fmt.Sprintf("role is assigned to %d user(s) and cannot be deleted", count),
	}
}

// Invalid returns a VALIDATION_ERROR with a field-specific message.
func Invalid(msg string) *Error {
	return &Error{Code: ErrValidation.Code, Message: msg}
}
