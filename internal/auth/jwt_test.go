package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/erazemk/zaloga/internal/model"
)

var admin = &model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"

	token, issued, err := GenerateToken(secret, 0, admin, ScopeOperator)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != 1 {
		t.Errorf("expected user_id 1, got %d", claims.UserID)
	}
	if claims.Username != "admin" {
		t.Errorf("expected username 'admin', got %q", claims.Username)
	}
	if claims.Role != model.RoleAdmin {
		t.Errorf("expected role 'admin', got %q", claims.Role)
	}
	if claims.Scope != ScopeOperator {
		t.Errorf("expected operator scope, got %q", claims.Scope)
	}
	if claims.ID == "" || claims.ID != issued.ID {
		t.Errorf("expected JTI %q, got %q", issued.ID, claims.ID)
	}
}

func TestTokensHaveUniqueJTI(t *testing.T) {
	_, a, _ := GenerateToken("s", 0, admin, ScopeOperator)
	_, b, _ := GenerateToken("s", 0, admin, ScopeOperator)
	if a.ID == b.ID {
		t.Errorf("expected distinct JTIs, got %q twice", a.ID)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, _, _ := GenerateToken("secret1", 0, admin, ScopeOperator)

	_, err := ValidateToken("secret2", token)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token")
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateScopedToken(t *testing.T) {
	token, _, _ := GenerateToken("s", 0, admin, ScopeMobile)

	if _, err := ValidateScopedToken("s", token, ScopeMobile); err != nil {
		t.Errorf("mobile token rejected by mobile scope: %v", err)
	}
	if _, err := ValidateScopedToken("s", token, ScopeOperator); !errors.Is(err, ErrWrongScope) {
		t.Errorf("expected ErrWrongScope, got %v", err)
	}
}

func TestTokenExpiry(t *testing.T) {
	secret := "test"
	token, _, _ := GenerateToken(secret, time.Hour, admin, ScopeMobile)
	claims, _ := ValidateToken(secret, token)

	expiresAt := claims.ExpiresAt.Time
	expectedExpiry := time.Now().Add(time.Hour)

	diff := expectedExpiry.Sub(expiresAt)
	if diff < -5*time.Second || diff > 5*time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, _, _ := GenerateToken("s", time.Nanosecond, admin, ScopeMobile)
	time.Sleep(1100 * time.Millisecond)

	if _, err := ValidateToken("s", token); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestHashSecret(t *testing.T) {
	hash, err := HashSecret("123456")
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}
	if !CheckSecret(hash, "123456") {
		t.Error("expected PIN to match its hash")
	}
	if CheckSecret(hash, "654321") {
		t.Error("expected wrong PIN to be rejected")
	}
	if CheckSecret("", "") {
		t.Error("expected empty hash never to match")
	}
}
