package auth

import (
	"testing"
	"time"
)

func newTestManager() *Manager {
	return NewManager("test-secret", time.Hour, 10*time.Minute)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	m := newTestManager()

	raw, jti, expiresAt, err := m.GenerateSessionToken("u1")

	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if jti == "" {
		t.Fatal("expected a jti")
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Fatalf("unexpected expiry %s", expiresAt)
	}

	claims, err := m.VerifySessionToken(raw)

	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("got subject %q, want u1", claims.UserID)
	}
	if claims.JTI != jti {
		t.Fatalf("got jti %q, want %q", claims.JTI, jti)
	}
}

func TestTokenTypeCrossRejection(t *testing.T) {
	m := newTestManager()

	sessionToken, _, _, err := m.GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("generate session: %v", err)
	}

	changeToken, err := m.GeneratePasswordChangeToken("u1")
	if err != nil {
		t.Fatalf("generate pwchange: %v", err)
	}

	if _, err := m.VerifyPasswordChangeToken(sessionToken); err == nil {
		t.Fatal("session token must not verify as a password-change token")
	}

	if _, err := m.VerifySessionToken(changeToken); err == nil {
		t.Fatal("password-change token must not verify as a session token")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	raw, _, _, err := NewManager("secret-a", time.Hour, time.Minute).GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := NewManager("secret-b", time.Hour, time.Minute).VerifySessionToken(raw); err == nil {
		t.Fatal("token signed with another secret must not verify")
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, -time.Minute)

	raw, _, _, err := m.GenerateSessionToken("u1")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := m.VerifySessionToken(raw); err == nil {
		t.Fatal("expired token must not verify")
	}
}

func TestHashSessionToken(t *testing.T) {
	m := newTestManager()

	a := m.HashSessionToken("token")
	b := m.HashSessionToken("token")

	if a != b {
		t.Fatal("hash must be deterministic")
	}
	if a == "token" {
		t.Fatal("hash must not echo its input")
	}

	other := NewManager("other-secret", time.Hour, time.Minute).HashSessionToken("token")

	if a == other {
		t.Fatal("hash must be keyed on the secret")
	}
}
