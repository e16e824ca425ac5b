package twostep

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/twostep-io/twostep/token"
)

// Builder assembles an [Engine]. A Builder is single-use; Build fails
// on the second call.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	userProvider UserProvider
	hasher       PasswordHasher
	delivery     DeliverySink
	auditSink    AuditSink

	built bool
}

// New starts a Builder carrying the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing challenge, attempt, and
// lockout state.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserProvider sets the user lookup used by [Engine.Login].
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithPasswordHasher sets the hash verifier used by [Engine.Login].
func (b *Builder) WithPasswordHasher(h PasswordHasher) *Builder {
	b.hasher = h
	return b
}

// WithDelivery sets the sink that carries codes to users. Leaving it
// unset is allowed; codes are then stored but never delivered, which
// only makes sense in tests.
func (b *Builder) WithDelivery(sink DeliverySink) *Builder {
	b.delivery = sink
	return b
}

// WithAuditSink sets the destination for audit events.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration and wires the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if b.hasher == nil {
		return nil, errors.New("password hasher required")
	}

	sink := b.auditSink
	if sink == nil || !cfg.Audit.Enabled {
		sink = NoOpSink{}
	}

	tm, err := token.NewManager(token.Config{
		Secret:     cloneBytes(cfg.Token.Secret),
		PendingTTL: cfg.Token.PendingTTL,
		AccessTTL:  cfg.Token.AccessTTL,
		Issuer:     cfg.Token.Issuer,
		Leeway:     cfg.Token.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		challenges: newChallengeStore(b.redis, cfg.Challenge.RedisPrefix),
		attempts:   newAttemptLimiter(b.redis, cfg.Challenge.RedisPrefix),
		lockouts:   newLockoutLimiter(b.redis, cfg.Challenge.RedisPrefix, cfg.Lockout.Schedule),
		tokens:     tm,
		users:      b.userProvider,
		hasher:     b.hasher,
		delivery:   b.delivery,
		audit:      newAuditDispatcher(sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull),
		metrics:    NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}
