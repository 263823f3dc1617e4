package auth

import (
	"strings"
	"testing"
	"time"

	"carbon-filing/internal/config"
)

func testService() *Service {
	return NewService(&config.JWTConfig{
		Secret:     "test-secret-key",
		Expiration: time.Hour,
	})
}

func TestHashAndVerifyPassword(t *testing.T) {
	svc := testService()

	hash, err := svc.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Error("Hash must not equal the plaintext")
	}

	if err := svc.VerifyPassword(hash, "correct horse battery staple"); err != nil {
		t.Errorf("VerifyPassword failed for correct password: %v", err)
	}
	if err := svc.VerifyPassword(hash, "wrong"); err == nil {
		t.Error("VerifyPassword must fail for a wrong password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := testService()

	token, err := svc.GenerateToken(42, "user@example.com", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("Expected user ID 42, got %d", claims.UserID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("Expected email, got %s", claims.Email)
	}
	if claims.Role != "admin" {
		t.Errorf("Expected role admin, got %s", claims.Role)
	}
	if claims.ID == "" {
		t.Error("Expected a JTI")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := NewService(&config.JWTConfig{
		Secret:     "test-secret-key",
		Expiration: -time.Minute,
	})

	token, err := svc.GenerateToken(1, "user@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("Expected expired token to be rejected")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := testService().GenerateToken(1, "user@example.com", "user")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewService(&config.JWTConfig{Secret: "different-secret", Expiration: time.Hour})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("Expected token signed with another secret to be rejected")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	if _, err := testService().ValidateToken("not.a.token"); err == nil {
		t.Error("Expected malformed token to be rejected")
	}
}

func TestGenerateRandomToken(t *testing.T) {
	a, err := GenerateRandomToken(16)
	if err != nil {
		t.Fatalf("GenerateRandomToken failed: %v", err)
	}
	if len(a) != 32 {
		t.Errorf("Expected 32 hex chars, got %d", len(a))
	}

	b, _ := GenerateRandomToken(16)
	if strings.EqualFold(a, b) {
		t.Error("Expected two random tokens to differ")
	}
}
