package auth

import (
	"errors"
	"testing"
	"time"

	"dentalbudget/internal/core"
)

const testSecret = "test-secret-key-for-tokens"

func testUser() core.User {
	pid := int64(7)
	return core.User{
		ID:         42,
		Email:      "manager@example.com",
		Role:       core.RoleManager,
		PracticeID: &pid,
	}
}

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, nil)

	token, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "manager@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "manager@example.com")
	}
	if claims.Role != core.RoleManager {
		t.Errorf("Role = %q, want %q", claims.Role, core.RoleManager)
	}
	if claims.PracticeID == nil || *claims.PracticeID != 7 {
		t.Errorf("PracticeID = %v, want 7", claims.PracticeID)
	}
}

func TestVerifyExpired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	tm := NewTokenManager(testSecret, time.Hour, func() time.Time { return issued })

	token, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	verifier := NewTokenManager(testSecret, time.Hour, nil)
	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify() error = %v, want ErrTokenExpired", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, nil)
	token, err := tm.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewTokenManager("a-completely-different-secret", time.Hour, nil)
	if _, err := other.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("Verify() error = %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyGarbage(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour, nil)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := tm.Verify(token); !errors.Is(err, ErrTokenInvalid) {
			t.Errorf("Verify(%q) error = %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("CheckPassword() = false for correct password")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("CheckPassword() = true for wrong password")
	}
}

func TestHashPasswordEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Error("HashPassword(\"\") error = nil, want error")
	}
}
