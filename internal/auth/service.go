package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service implements the account operations: registration and login.
type Service struct {
	users    UserRepository
	secret   string
	tokenTTL time.Duration
}

// NewService creates a Service.
func NewService(users UserRepository, secret string, tokenTTL time.Duration) *Service {
	return &Service{users: users, secret: secret, tokenTTL: tokenTTL}
}

// Register creates a new account with a hashed password. An empty role
// defaults to RoleUser.
func (s *Service) Register(ctx context.Context, username, email, password string, role Role) (*User, error) {
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("registering user: unknown role %q", role)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("registering user: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login verifies credentials, mints a fresh session, and issues a token
// bound to it.
//
// Storing the new session ID before returning is what invalidates every
// token from earlier logins: their sid claim no longer matches. Unknown
// email and wrong password both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	sessionID := uuid.NewString()
	if err := s.users.UpdateSessionID(ctx, user.ID, sessionID); err != nil {
		return nil, "", fmt.Errorf("logging in: %w", err)
	}
	user.CurrentSessionID = sessionID

	token, err := IssueToken(user.ID, sessionID, s.secret, s.tokenTTL)
	if err != nil {
		return nil, "", fmt.Errorf("logging in: %w", err)
	}

	return user, token, nil
}

// TokenTTL returns the configured token lifetime, for callers that need
// to align cookie expiry with token expiry.
func (s *Service) TokenTTL() time.Duration {
	if s.tokenTTL <= 0 {
		return defaultTokenTTL
	}
	return s.tokenTTL
}
