package twostep

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// envConfig mirrors the environment surface. Durations arrive in the units
// the variable names promise (seconds or minutes), not Go duration syntax.
type envConfig struct {
	Secret              string `env:"TWO_FA_SECRET"`
	CodeTTLSeconds      int    `env:"TWO_FA_CODE_TTL_SECONDS" env-default:"180"`
	ResendSeconds       int    `env:"TWO_FA_RESEND_SECONDS" env-default:"60"`
	MaxAttempts         int    `env:"TWO_FA_MAX_ATTEMPTS" env-default:"5"`
	BlockInitialMinutes int    `env:"TWO_FA_BLOCK_INITIAL_MINUTES" env-default:"30"`
	TmpTokenMinutes     int    `env:"TMP_TOKEN_EXPIRE_MINUTES" env-default:"5"`
	AccessTokenMinutes  int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"30"`
}

// ConfigFromEnv builds a Config from environment variables, starting from
// [DefaultConfig]. Only the first lockout schedule entry is configurable
// (TWO_FA_BLOCK_INITIAL_MINUTES); the escalation tail is fixed policy.
func ConfigFromEnv() (Config, error) {
	var env envConfig
	if err := cleanenv.ReadEnv(&env); err != nil {
		return Config{}, err
	}

	cfg := defaultConfig()
	cfg.Token.Secret = []byte(env.Secret)
	cfg.Token.PendingTTL = time.Duration(env.TmpTokenMinutes) * time.Minute
	cfg.Token.AccessTTL = time.Duration(env.AccessTokenMinutes) * time.Minute
	cfg.Challenge.CodeTTL = time.Duration(env.CodeTTLSeconds) * time.Second
	cfg.Challenge.ResendCooldown = time.Duration(env.ResendSeconds) * time.Second
	cfg.Challenge.MaxAttempts = env.MaxAttempts
	if env.BlockInitialMinutes > 0 {
		cfg.Lockout.Schedule[0] = time.Duration(env.BlockInitialMinutes) * time.Minute
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
