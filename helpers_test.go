package twostep

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type mockUserProvider struct {
	users   map[string]UserRecord
	lookups int
	mu      sync.Mutex
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++

	user, ok := m.users[email]
	if !ok {
		return UserRecord{}, errors.New("not found")
	}
	return user, nil
}

// plainHasher avoids bcrypt cost in engine tests; hashes are the
// password with a fixed prefix.
type plainHasher struct{}

func plainHash(password string) string {
	return "hash:" + password
}

func (plainHasher) Verify(password, hash string) (bool, error) {
	return hash == plainHash(password), nil
}

type captureSink struct {
	mu    sync.Mutex
	sends []capturedSend
	err   error
}

type capturedSend struct {
	address string
	subject string
	code    string
}

func (s *captureSink) Send(_ context.Context, address, subject, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sends = append(s.sends, capturedSend{address: address, subject: subject, code: code})
	return nil
}

func (s *captureSink) lastCode(t *testing.T) string {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sends) == 0 {
		t.Fatal("no codes delivered")
	}
	return s.sends[len(s.sends)-1].code
}

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sends)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("test-secret")
	cfg.Audit.Enabled = false
	return cfg
}

func testProvider() *mockUserProvider {
	return &mockUserProvider{
		users: map[string]UserRecord{
			"alice@example.com": {
				UserID:       "u1",
				Email:        "alice@example.com",
				PasswordHash: plainHash("correct-horse"),
			},
			"bob@example.com": {
				UserID:       "u2",
				Email:        "bob@example.com",
				PasswordHash: plainHash("hunter2hunter2"),
				Disabled:     true,
			},
		},
	}
}

func newTestEngine(t *testing.T, rdb *redis.Client, cfg Config, sink *captureSink) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(testProvider()).
		WithPasswordHasher(plainHasher{}).
		WithDelivery(sink).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// queueCodes makes the engine hand out the given codes in order, then
// fail once they run out.
func queueCodes(e *Engine, codes ...string) {
	remaining := append([]string(nil), codes...)
	e.newCode = func(int) (string, error) {
		if len(remaining) == 0 {
			return "", fmt.Errorf("code queue exhausted")
		}
		next := remaining[0]
		remaining = remaining[1:]
		return next, nil
	}
}
