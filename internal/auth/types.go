package auth

import (
	"errors"
	"time"
)

// Role determines which protected routes a user may access.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"

	// RoleAdmin grants access to admin-only routes.
	RoleAdmin Role = "admin"
)

// IsValid reports whether the role is a known role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a registered account.
//
// CurrentSessionID holds the session ID minted by the most recent login;
// empty means the user has never logged in. Only Login mutates it.
type User struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Role             Role      `json:"role"`
	CurrentSessionID string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Domain-specific errors for authentication operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrUserNotFound is returned when no user matches the lookup key.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrEmailExists is returned when registering with an email that is
	// already taken.
	ErrEmailExists = errors.New("auth: email already registered")

	// ErrInvalidCredentials is returned on login when the email is unknown
	// or the password does not match. Callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrSessionInvalidated is returned when a token is well-formed and
	// unexpired but its session ID no longer matches the user's current
	// session (a later login superseded it).
	ErrSessionInvalidated = errors.New("auth: session invalidated by newer login")

	// ErrTokenExpired is returned when the token's expiry has passed.
	ErrTokenExpired = errors.New("auth: token expired")

	// ErrTokenMalformed is returned when the token is not a parseable JWT.
	ErrTokenMalformed = errors.New("auth: token malformed")

	// ErrTokenSignature is returned when the token signature does not
	// verify against the configured secret.
	ErrTokenSignature = errors.New("auth: token signature invalid")

	// ErrTokenInvalid is returned for token failures not covered by a more
	// specific error above.
	ErrTokenInvalid = errors.New("auth: token invalid")
)
