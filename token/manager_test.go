package token

import (
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()

	m, err := NewManager(Config{
		Secret:     []byte("test-secret"),
		PendingTTL: 5 * time.Minute,
		AccessTTL:  30 * time.Minute,
		Issuer:     "twostep-test",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManagerValidation(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing secret", Config{PendingTTL: time.Minute, AccessTTL: time.Minute}},
		{"zero pending ttl", Config{Secret: []byte("s"), AccessTTL: time.Minute}},
		{"zero access ttl", Config{Secret: []byte("s"), PendingTTL: time.Minute}},
		{"huge leeway", Config{Secret: []byte("s"), PendingTTL: time.Minute, AccessTTL: time.Minute, Leeway: 5 * time.Minute}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewManager(tc.cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestPendingTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.CreatePending("u1")
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	claims, err := m.ParsePending(tok)
	if err != nil {
		t.Fatalf("ParsePending failed: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("UserID = %q, want u1", claims.UserID)
	}
	if claims.TokenType != TypePending {
		t.Fatalf("TokenType = %q, want %q", claims.TokenType, TypePending)
	}
	if claims.ID == "" {
		t.Fatal("expected a jti claim")
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	tok, err := m.CreateAccess("u1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	claims, err := m.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess failed: %v", err)
	}
	if claims.TokenType != TypeAccess {
		t.Fatalf("TokenType = %q, want %q", claims.TokenType, TypeAccess)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	m := newTestManager(t)

	pending, err := m.CreatePending("u1")
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}
	access, err := m.CreateAccess("u1")
	if err != nil {
		t.Fatalf("CreateAccess failed: %v", err)
	}

	if _, err := m.ParseAccess(pending); !errors.Is(err, ErrInvalid) {
		t.Fatalf("pending as access: expected ErrInvalid, got %v", err)
	}
	if _, err := m.ParsePending(access); !errors.Is(err, ErrInvalid) {
		t.Fatalf("access as pending: expected ErrInvalid, got %v", err)
	}
}

func TestExpiredTokenIsErrExpired(t *testing.T) {
	m, err := NewManager(Config{
		Secret:     []byte("test-secret"),
		PendingTTL: time.Nanosecond,
		AccessTTL:  time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := m.CreatePending("u1")
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := m.ParsePending(tok); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestWrongSecretIsErrInvalid(t *testing.T) {
	m := newTestManager(t)

	other, err := NewManager(Config{
		Secret:     []byte("different-secret"),
		PendingTTL: time.Minute,
		AccessTTL:  time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := other.CreatePending("u1")
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	if _, err := m.ParsePending(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestGarbageTokenIsErrInvalid(t *testing.T) {
	m := newTestManager(t)

	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := m.ParsePending(tok); !errors.Is(err, ErrInvalid) {
			t.Fatalf("token %q: expected ErrInvalid, got %v", tok, err)
		}
	}
}

func TestIssuerIsEnforced(t *testing.T) {
	m := newTestManager(t)

	unissued, err := NewManager(Config{
		Secret:     []byte("test-secret"),
		PendingTTL: 5 * time.Minute,
		AccessTTL:  30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	tok, err := unissued.CreatePending("u1")
	if err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}

	if _, err := m.ParsePending(tok); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid for missing issuer, got %v", err)
	}
}
