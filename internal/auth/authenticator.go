package auth

import (
	"context"
	"fmt"
)

// Authenticator verifies tokens against both the signing secret and the
// user's stored current session.
//
// It is transport-agnostic: HTTP middleware and the WebSocket handshake
// extract a raw token string by their own rules and hand it here.
type Authenticator struct {
	users  UserRepository
	secret string
}

// NewAuthenticator creates an Authenticator.
func NewAuthenticator(users UserRepository, secret string) *Authenticator {
	return &Authenticator{users: users, secret: secret}
}

// Authenticate verifies the token and returns the authenticated user.
//
// The checks run in order:
//  1. signature, expiry, and claim shape (ParseToken error kinds)
//  2. the user referenced by the subject claim still exists
//  3. the token's session ID equals the user's current session ID
//
// A token that passes 1 and 2 but fails 3 was superseded by a later
// login and yields ErrSessionInvalidated.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (*User, error) {
	claims, err := ParseToken(token, a.secret)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetByID(ctx, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("authenticating token: %w", err)
	}

	if user.CurrentSessionID == "" || user.CurrentSessionID != claims.SessionID {
		return nil, ErrSessionInvalidated
	}

	return user, nil
}
