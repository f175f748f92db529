package server

import (
	"testing"

	"github.com/google/uuid"

	"github.com/jonathan/levelguide/internal/config"
)

func newTestJWTService(secret string) *JWTService {
	return NewJWTService(&config.JWTConfig{Secret: secret, ExpirationHours: 1})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestJWTService("test-secret")
	userID, companyID := uuid.New(), uuid.New()

	token, err := svc.GenerateToken(userID, companyID, "manager")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user ID = %s, expected %s", claims.UserID, userID)
	}
	if claims.CompanyID != companyID {
		t.Errorf("company ID = %s, expected %s", claims.CompanyID, companyID)
	}
	if claims.Role != "manager" {
		t.Errorf("role = %q, expected manager", claims.Role)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := newTestJWTService("secret-a").GenerateToken(uuid.New(), uuid.New(), "employee")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := newTestJWTService("secret-b").ValidateToken(token); err == nil {
		t.Error("expected validation to fail with a different secret")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	svc := NewJWTService(&config.JWTConfig{Secret: "test-secret", ExpirationHours: -1})
	token, err := svc.GenerateToken(uuid.New(), uuid.New(), "employee")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expected validation to fail for an expired token")
	}
}

func TestValidateTokenMalformed(t *testing.T) {
	svc := newTestJWTService("test-secret")
	for _, token := range []string{"", "garbage", "a.b.c"} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("expected error for token %q", token)
		}
	}
}

func TestAsTokenValidator(t *testing.T) {
	svc := newTestJWTService("test-secret")
	userID, companyID := uuid.New(), uuid.New()
	token, err := svc.GenerateToken(userID, companyID, "employee")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := svc.AsTokenValidator().ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken via adapter: %v", err)
	}
	if claims.GetUserID() != userID || claims.GetCompanyID() != companyID || claims.GetRole() != "employee" {
		t.Error("adapter did not carry identity through")
	}
}
