package reeutil

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/MrBl4ck04/ReeUtil-sub000/internal/audit"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/expiring"
	"github.com/MrBl4ck04/ReeUtil-sub000/internal/rate"
	"github.com/MrBl4ck04/ReeUtil-sub000/jwt"
	"github.com/MrBl4ck04/ReeUtil-sub000/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine.
//
// Builder instances are intended to be configured during initialization and then discarded after Build.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	store    PrincipalStore
	mailer   Mailer
	verifier PasswordVerifier

	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with the default Config.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithPrincipalStore sets the user and employee store. Required.
func (b *Builder) WithPrincipalStore(store PrincipalStore) *Builder {
	b.store = store
	return b
}

// WithMailer sets the code delivery channel. Required.
func (b *Builder) WithMailer(m Mailer) *Builder {
	b.mailer = m
	return b
}

// WithRedis moves the CAPTCHA, verification code, and pending login stores
// into Redis so that several instances share them. It also enables the
// per-IP login throttle when RateLimit.Enabled is set.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAuditSink sets where audit events go once Audit.Enabled is set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Defaults to slog.Default().
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithPasswordVerifier overrides the default Argon2id/bcrypt verifier.
func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.verifier = v
	return b
}

// WithClock overrides time.Now for expiry, lockout stamps, and tokens.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wires every collaborator.
//
// A Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.store == nil {
		return nil, errors.New("principal store required")
	}
	if b.mailer == nil {
		return nil, errors.New("mailer required")
	}
	if cfg.RateLimit.Enabled && b.redis == nil {
		return nil, errors.New("RateLimit requires redis client")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	verifier := b.verifier
	if verifier == nil {
		v, err := NewPasswordVerifier(cfg.Password)
		if err != nil {
			return nil, err
		}
		verifier = v
	}

	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           cfg.JWT.TTL,
		SigningMethod: jwt.SigningMethod(strings.ToLower(cfg.JWT.SigningMethod)),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		VerifyKeys:    cfg.JWT.VerifyKeys,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:   cfg,
		store:    b.store,
		mailer:   b.mailer,
		verifier: verifier,
		tokens:   tokens,
		logger:   logger,
		now:      now,
	}

	// -------- EXPIRING STORES --------
	if b.redis != nil {
		prefix := cfg.Redis.KeyPrefix
		engine.captchas = expiring.NewRedis[string](b.redis, prefix+":cap", now)
		engine.codes = expiring.NewRedis[string](b.redis, prefix+":vc", now)
		engine.pending = expiring.NewRedis[pendingLogin](b.redis, prefix+":pl", now)
	} else {
		engine.captchas = expiring.NewMemory[string](now)
		engine.codes = expiring.NewMemory[string](now)
		engine.pending = expiring.NewMemory[pendingLogin](now)
	}

	if cfg.RateLimit.Enabled {
		engine.limiter = rate.New(b.redis, rate.Config{
			MaxAttempts: cfg.RateLimit.MaxAttempts,
			Window:      cfg.RateLimit.Window,
		})
	}

	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink, logger)
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}

// NewPasswordVerifier returns the default verifier for cfg. Seed loaders use
// it to hash plaintext passwords the same way the engine checks them.
func NewPasswordVerifier(cfg PasswordConfig) (*password.Verifier, error) {
	return password.NewVerifier(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	}, cfg.BcryptCost)
}
