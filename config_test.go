package twostep

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.Secret = []byte("secret")
	return cfg
}

func TestConfigValidateDefaultsWithSecret(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"missing secret", func(c *Config) { c.Token.Secret = nil }, "secret"},
		{"zero pending ttl", func(c *Config) { c.Token.PendingTTL = 0 }, "TTL"},
		{"huge leeway", func(c *Config) { c.Token.Leeway = 5 * time.Minute }, "leeway"},
		{"zero code ttl", func(c *Config) { c.Challenge.CodeTTL = 0 }, "TTL"},
		{"cooldown exceeds ttl", func(c *Config) { c.Challenge.ResendCooldown = 200 * time.Second }, "cooldown"},
		{"zero attempts", func(c *Config) { c.Challenge.MaxAttempts = 0 }, "attempts"},
		{"short code", func(c *Config) { c.Challenge.CodeDigits = 4 }, "digits"},
		{"empty prefix", func(c *Config) { c.Challenge.RedisPrefix = "" }, "prefix"},
		{"empty schedule", func(c *Config) { c.Lockout.Schedule = nil }, "schedule"},
		{"negative schedule entry", func(c *Config) { c.Lockout.Schedule = []time.Duration{-time.Minute} }, "schedule"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("error %q does not mention %q", err, tc.wantSub)
			}
		})
	}
}

func TestCloneConfigIsolatesMutableFields(t *testing.T) {
	cfg := validConfig()
	clone := cloneConfig(cfg)

	clone.Token.Secret[0] = 'X'
	clone.Lockout.Schedule[0] = time.Second

	if cfg.Token.Secret[0] == 'X' {
		t.Fatal("secret aliased between clone and original")
	}
	if cfg.Lockout.Schedule[0] == time.Second {
		t.Fatal("schedule aliased between clone and original")
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TWO_FA_SECRET", "env-secret")
	t.Setenv("TWO_FA_CODE_TTL_SECONDS", "120")
	t.Setenv("TWO_FA_RESEND_SECONDS", "45")
	t.Setenv("TWO_FA_MAX_ATTEMPTS", "3")
	t.Setenv("TWO_FA_BLOCK_INITIAL_MINUTES", "15")
	t.Setenv("TMP_TOKEN_EXPIRE_MINUTES", "10")
	t.Setenv("ACCESS_TOKEN_EXPIRE_MINUTES", "60")

	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv failed: %v", err)
	}

	if string(cfg.Token.Secret) != "env-secret" {
		t.Fatalf("secret = %q, want env-secret", cfg.Token.Secret)
	}
	if cfg.Challenge.CodeTTL != 120*time.Second {
		t.Fatalf("code TTL = %s, want 2m", cfg.Challenge.CodeTTL)
	}
	if cfg.Challenge.ResendCooldown != 45*time.Second {
		t.Fatalf("cooldown = %s, want 45s", cfg.Challenge.ResendCooldown)
	}
	if cfg.Challenge.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d, want 3", cfg.Challenge.MaxAttempts)
	}
	if cfg.Lockout.Schedule[0] != 15*time.Minute {
		t.Fatalf("initial block = %s, want 15m", cfg.Lockout.Schedule[0])
	}
	if cfg.Lockout.Schedule[1] != time.Hour {
		t.Fatalf("second block = %s, want 1h", cfg.Lockout.Schedule[1])
	}
	if cfg.Token.PendingTTL != 10*time.Minute {
		t.Fatalf("pending TTL = %s, want 10m", cfg.Token.PendingTTL)
	}
	if cfg.Token.AccessTTL != time.Hour {
		t.Fatalf("access TTL = %s, want 1h", cfg.Token.AccessTTL)
	}
}

func TestConfigFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("TWO_FA_SECRET", "")

	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected an error without TWO_FA_SECRET")
	}
}
