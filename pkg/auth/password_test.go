package auth

import (
	"errors"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("resident-pass")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" || hash == "resident-pass" {
		t.Fatalf("expected hashed value, got %q", hash)
	}
	if !CheckPassword("resident-pass", hash) {
		t.Fatalf("expected password to verify")
	}
	if CheckPassword("wrong-pass", hash) {
		t.Fatalf("expected wrong password to fail")
	}
}

func TestHashPasswordSalted(t *testing.T) {
	h1, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash 1: %v", err)
	}
	h2, err := HashPassword("same-input")
	if err != nil {
		t.Fatalf("hash 2: %v", err)
	}
	if h1 == h2 {
		t.Fatalf("expected salted hashes to differ")
	}
}

func TestCheckPasswordRejectsMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("expected malformed hash to fail")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected too-short error, got: %v", err)
	}
	if err := ValidatePassword("long-enough"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
}
