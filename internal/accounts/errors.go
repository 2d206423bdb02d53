package accounts

import "errors"

// Error taxonomy surfaced by the account security core. Handlers map these
// onto HTTP codes; anonymous callers only ever see the coarse buckets so
// that failures leak nothing about which account or token exists.
var (
	ErrValidation         = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateRoleName  = errors.New("role name already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountInactive    = errors.New("account inactive")
	ErrMustChangePassword = errors.New("password change required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrRoleInUse          = errors.New("role is referenced by users")
)
