package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func setupTestService(t *testing.T) (*Service, *Authenticator) {
	t.Helper()
	repo := setupTestRepo(t)
	return NewService(repo, testSecret, time.Hour), NewAuthenticator(repo, testSecret)
}

func TestService_Register(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", "password123", "")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != RoleUser {
		t.Errorf("Role = %q, want user as default", user.Role)
	}
	if user.PasswordHash == "password123" {
		t.Fatal("password must be stored hashed")
	}

	_, err = svc.Register(ctx, "alice2", "alice@example.com", "password123", "")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("Register() duplicate email error = %v, want ErrEmailExists", err)
	}
}

func TestService_Register_AdminRole(t *testing.T) {
	svc, _ := setupTestService(t)

	user, err := svc.Register(context.Background(), "root", "root@example.com", "password123", RoleAdmin)
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Role != RoleAdmin {
		t.Errorf("Role = %q, want admin", user.Role)
	}
}

func TestService_Register_UnknownRole(t *testing.T) {
	svc, _ := setupTestService(t)

	if _, err := svc.Register(context.Background(), "x", "x@example.com", "password123", "superuser"); err == nil {
		t.Fatal("Register() with unknown role should fail")
	}
}

func TestService_Login(t *testing.T) {
	svc, authn := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, token, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if user.CurrentSessionID == "" {
		t.Fatal("Login() should mint a session ID")
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.SessionID != user.CurrentSessionID {
		t.Errorf("token sid = %q, want stored session %q", claims.SessionID, user.CurrentSessionID)
	}

	if _, err := authn.Authenticate(ctx, token); err != nil {
		t.Errorf("Authenticate() with fresh token error = %v", err)
	}
}

func TestService_Login_InvalidCredentials(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "password123"},
		{"wrong password", "alice@example.com", "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestService_Login_SupersedesOlderTokens(t *testing.T) {
	// The single-active-session rule: a second login leaves tokens from
	// the first login verifiable but no longer authorized.
	svc, authn := setupTestService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", ""); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, token1, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	if _, err := authn.Authenticate(ctx, token1); err != nil {
		t.Fatalf("Authenticate(token1) before relogin error = %v", err)
	}

	_, token2, err := svc.Login(ctx, "alice@example.com", "password123")
	if err != nil {
		t.Fatalf("second Login() error = %v", err)
	}

	if _, err := authn.Authenticate(ctx, token1); !errors.Is(err, ErrSessionInvalidated) {
		t.Errorf("Authenticate(token1) after relogin error = %v, want ErrSessionInvalidated", err)
	}
	if _, err := authn.Authenticate(ctx, token2); err != nil {
		t.Errorf("Authenticate(token2) error = %v", err)
	}
}
