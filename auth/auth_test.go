package auth

import (
	"errors"
	"testing"

	"github.com/saiganesh141124/flora-intel/apperrors"
)

func TestIssueAndValidateToken(t *testing.T) {
	service := NewService("test-secret")

	token, err := service.IssueToken("user-1")
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}

	principalID, err := service.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() unexpected error: %v", err)
	}
	if principalID != "user-1" {
		t.Errorf("ValidateToken() = %q, want %q", principalID, "user-1")
	}
}

func TestValidateTokenRejectsEmpty(t *testing.T) {
	service := NewService("test-secret")

	_, err := service.ValidateToken("")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("ValidateToken(\"\") error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindUnauthorized)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewService("secret-a")
	validator := NewService("secret-b")

	token, err := issuer.IssueToken("user-1")
	if err != nil {
		t.Fatalf("IssueToken() unexpected error: %v", err)
	}

	_, err = validator.ValidateToken(token)
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("ValidateToken() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindUnauthorized)
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	service := NewService("test-secret")

	_, err := service.ValidateToken("not.a.token")
	if !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Errorf("ValidateToken() error kind = %q, want %q", apperrors.KindOf(err), apperrors.KindUnauthorized)
	}
}

func TestIssueTokenRequiresPrincipal(t *testing.T) {
	service := NewService("test-secret")

	if _, err := service.IssueToken(""); err == nil {
		t.Error("IssueToken(\"\") expected error but got none")
	}
}
