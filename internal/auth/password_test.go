package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret-password" {
		t.Fatal("hash must not equal the plaintext password")
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("hash %q is not a bcrypt hash", hash)
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("HashPassword(\"\") should fail")
	}
}

func TestVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if err := VerifyPassword(hash, "correct horse"); err != nil {
		t.Errorf("VerifyPassword() with correct password error = %v", err)
	}

	err = VerifyPassword(hash, "battery staple")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyPassword() with wrong password error = %v, want ErrInvalidCredentials", err)
	}
}

func TestVerifyPassword_NotAHash(t *testing.T) {
	err := VerifyPassword("plaintext-stored-by-mistake", "anything")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyPassword() error = %v, want ErrInvalidCredentials", err)
	}
}
