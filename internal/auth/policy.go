package auth

// Well-known role names. USER is granted to every registration; ADMIN
// gates the account-management surface.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// HasAuthority reports whether the authority set contains name.
func HasAuthority(authorities []string, name string) bool {
	for _, a := range authorities {
		if a == name {
			return true
		}
	}
	return false
}

// Authorize checks that the actor's authorities include the required
// role and fails with ErrAccessDenied otherwise.
func Authorize(required string, authorities []string) error {
	if !HasAuthority(authorities, required) {
		return ErrAccessDenied
	}
	return nil
}
