package twostep

import (
	"context"
	"errors"
	"testing"
)

func TestLoginIssuesChallengeAndCorrelationToken(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	sink := &captureSink{}
	engine := newTestEngine(t, rdb, testConfig(), sink)
	queueCodes(engine, "013579")

	result, err := engine.Login(ctx, "alice@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if result.CorrelationToken == "" {
		t.Fatal("expected a correlation token")
	}

	if got := sink.lastCode(t); got != "013579" {
		t.Fatalf("delivered code = %q, want %q", got, "013579")
	}
	if sink.sends[0].address != "alice@example.com" {
		t.Fatalf("delivered to %q, want alice@example.com", sink.sends[0].address)
	}

	if !mr.Exists("2fa:code:u1") {
		t.Fatal("expected challenge key in redis")
	}

	claims, err := engine.tokens.ParsePending(result.CorrelationToken)
	if err != nil {
		t.Fatalf("ParsePending failed: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("correlation token user = %q, want u1", claims.UserID)
	}
}

func TestLoginUnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, testConfig(), &captureSink{})

	_, unknownErr := engine.Login(ctx, "nobody@example.com", "whatever")
	if !errors.Is(unknownErr, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", unknownErr)
	}

	_, wrongErr := engine.Login(ctx, "alice@example.com", "wrong-password")
	if !errors.Is(wrongErr, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", wrongErr)
	}

	if unknownErr.Error() != wrongErr.Error() {
		t.Fatalf("error strings differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	sink := &captureSink{}
	engine := newTestEngine(t, rdb, testConfig(), sink)

	_, err := engine.Login(ctx, "bob@example.com", "hunter2hunter2")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if sink.count() != 0 {
		t.Fatal("disabled account must not receive a code")
	}
}

func TestLoginCountsMetrics(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	ctx := context.Background()
	engine := newTestEngine(t, rdb, testConfig(), &captureSink{})
	queueCodes(engine, "111111")

	if _, err := engine.Login(ctx, "alice@example.com", "correct-horse"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if _, err := engine.Login(ctx, "alice@example.com", "bad"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("login success counter = %d, want 1", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 1 {
		t.Fatalf("login failure counter = %d, want 1", snap.Counters[MetricLoginFailure])
	}
	if snap.Counters[MetricChallengeIssued] != 1 {
		t.Fatalf("challenge issued counter = %d, want 1", snap.Counters[MetricChallengeIssued])
	}
}
