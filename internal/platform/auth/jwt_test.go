package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	userID := uuid.New()

	token, expires, err := issuer.Issue(userID, "drsmith", RoleDoctor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if time.Until(expires) < 55*time.Minute {
		t.Errorf("expected expiry roughly an hour out, got %v", expires)
	}

	ident, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ident.UserID != userID {
		t.Errorf("expected user id %s, got %s", userID, ident.UserID)
	}
	if ident.Username != "drsmith" {
		t.Errorf("expected username drsmith, got %s", ident.Username)
	}
	if ident.Role != RoleDoctor {
		t.Errorf("expected role DOCTOR, got %s", ident.Role)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret-a"), time.Hour)
	other := NewTokenIssuer([]byte("secret-b"), time.Hour)

	token, _, err := issuer.Issue(uuid.New(), "alice", RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := other.Verify(token); err == nil {
		t.Error("expected verification to fail with a different secret")
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), -time.Minute)
	token, _, err := issuer.Issue(uuid.New(), "alice", RolePatient)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := issuer.Verify(token); err == nil {
		t.Error("expected verification to fail for an expired token")
	}
}

func TestTokenIssuer_Garbage(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-secret"), time.Hour)
	if _, err := issuer.Verify("not.a.token"); err == nil {
		t.Error("expected verification to fail for garbage input")
	}
}

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"PATIENT", "HOSPITAL", "DOCTOR", "ADMIN"} {
		if _, err := ParseRole(valid); err != nil {
			t.Errorf("expected %s to parse, got %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "patient", "SUPERUSER", "Doctor"} {
		if _, err := ParseRole(invalid); err == nil {
			t.Errorf("expected %q to be rejected", invalid)
		}
	}
}
