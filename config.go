package twostep

import (
	"errors"
	"time"
)

// Config carries all engine policy. Configure once, pass to
// [Builder.WithConfig], and treat as immutable afterwards.
type Config struct {
	Token     TokenConfig
	Challenge ChallengeConfig
	Lockout   LockoutConfig
	Delivery  DeliveryConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig controls the signed correlation and access tokens.
type TokenConfig struct {
	// Secret is the HS256 signing key. Required.
	Secret []byte
	// PendingTTL bounds the correlation token handed out when a challenge is
	// issued. Independent of the code TTL.
	PendingTTL time.Duration
	// AccessTTL bounds the long-lived credential issued on successful
	// verification.
	AccessTTL time.Duration
	Issuer    string
	Leeway    time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig controls one-time code issuance and verification.
type ChallengeConfig struct {
	// CodeTTL is how long an issued code stays valid. The attempt counter
	// shares this TTL.
	CodeTTL time.Duration
	// ResendCooldown is the minimum gap between two sends for the same user.
	ResendCooldown time.Duration
	// MaxAttempts is the number of consecutive failed verifications before
	// lockout escalates.
	MaxAttempts int
	// CodeDigits is the code length; 6 unless there is a strong reason.
	CodeDigits int
	// RedisPrefix namespaces all challenge, attempt, and lockout keys.
	RedisPrefix string
}

// LockoutConfig controls progressive blocking after repeated failures.
type LockoutConfig struct {
	// Schedule holds the block duration per escalation level. The level is
	// clamped to the last entry, so durations never grow past it.
	Schedule []time.Duration
	// EnforceOnIssue also refuses challenge issuance while a lockout record
	// is live, closing the code-send amplification hole. Disable only for
	// strict compatibility with verify-time-only enforcement.
	EnforceOnIssue bool
}

// DeliveryConfig controls out-of-band code dispatch.
type DeliveryConfig struct {
	// Subject is handed to the sink alongside the code.
	Subject string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the lock-free counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the documented defaults: 180s code TTL, 60s resend
// cooldown, 5 attempts, 30m/1h/8h/24h lockout schedule, 5m correlation token,
// 30m access token.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			PendingTTL: 5 * time.Minute,
			AccessTTL:  30 * time.Minute,
		},
		Challenge: ChallengeConfig{
			CodeTTL:        180 * time.Second,
			ResendCooldown: 60 * time.Second,
			MaxAttempts:    5,
			CodeDigits:     6,
			RedisPrefix:    "2fa",
		},
		Lockout: LockoutConfig{
			Schedule: []time.Duration{
				30 * time.Minute,
				time.Hour,
				8 * time.Hour,
				24 * time.Hour,
			},
			EnforceOnIssue: true,
		},
		Delivery: DeliveryConfig{
			Subject: "Your verification code",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if len(c.Token.Secret) == 0 {
		return errors.New("token secret required")
	}
	if c.Token.PendingTTL <= 0 || c.Token.AccessTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.Leeway < 0 || c.Token.Leeway > 2*time.Minute {
		return errors.New("invalid token leeway")
	}
	if c.Challenge.CodeTTL <= 0 {
		return errors.New("challenge code TTL must be positive")
	}
	if c.Challenge.ResendCooldown < 0 {
		return errors.New("resend cooldown must not be negative")
	}
	if c.Challenge.ResendCooldown > c.Challenge.CodeTTL {
		return errors.New("resend cooldown must not exceed code TTL")
	}
	if c.Challenge.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.Challenge.CodeDigits < 6 || c.Challenge.CodeDigits > 10 {
		return errors.New("code digits must be between 6 and 10")
	}
	if c.Challenge.RedisPrefix == "" {
		return errors.New("redis prefix required")
	}
	if len(c.Lockout.Schedule) == 0 {
		return errors.New("lockout schedule must not be empty")
	}
	for _, d := range c.Lockout.Schedule {
		if d <= 0 {
			return errors.New("lockout schedule entries must be positive")
		}
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.Secret = cloneBytes(cfg.Token.Secret)
	out.Lockout.Schedule = append([]time.Duration(nil), cfg.Lockout.Schedule...)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
