package utils

import (
	"testing"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	password := "secret123"

	// Test Hashing
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	if hash == password {
		t.Error("Hash should not match plaintext password")
	}
	if len(hash) == 0 {
		t.Error("Hash should not be empty")
	}

	// Test Comparison (Success)
	if !CheckPasswordHash(password, hash) {
		t.Error("Password should match hash")
	}

	// Test Comparison (Failure)
	if CheckPasswordHash("wrongpassword", hash) {
		t.Error("Wrong password should not match hash")
	}
}

func TestJWT(t *testing.T) {
	secret := "test-secret-key-12345"

	user := &models.StaffUser{
		ID:       42,
		Email:    "nurse@example.com",
		Role:     "staff",
		IsActive: true,
	}

	// Test Generation
	accessToken, refreshToken, err := GenerateTokens(user, secret)
	if err != nil {
		t.Fatalf("Failed to generate tokens: %v", err)
	}
	if accessToken == "" || refreshToken == "" {
		t.Error("Tokens should not be empty")
	}

	// Test Validation (Success)
	claims, err := ValidateToken(accessToken, secret)
	if err != nil {
		t.Fatalf("Failed to validate token: %v", err)
	}

	// Numeric claims come back as float64
	if id, ok := claims["id"].(float64); !ok || uint(id) != user.ID {
		t.Errorf("Expected user ID %d, got %v", user.ID, claims["id"])
	}
	if claims["email"] != user.Email {
		t.Errorf("Expected email %s, got %v", user.Email, claims["email"])
	}
	if claims["role"] != user.Role {
		t.Errorf("Expected role %s, got %v", user.Role, claims["role"])
	}

	// Test Validation (Failure - Wrong Key)
	_, err = ValidateToken(accessToken, "wrong-key")
	if err == nil {
		t.Error("Validation should fail with wrong key")
	}
}
