package reeutil

import (
	"errors"
	"strings"
	"time"
)

// Config defines the tunables of an Engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT       JWTConfig
	Captcha   CaptchaConfig
	Codes     CodeConfig
	Lockout   LockoutConfig
	Password  PasswordConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Redis     RedisConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token signing.
type JWTConfig struct {
	TTL           time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// CaptchaConfig controls challenge lifetime.
type CaptchaConfig struct {
	TTL time.Duration
}

// CodeConfig controls one-time code lifetimes.
type CodeConfig struct {
	VerificationTTL time.Duration
	PendingLoginTTL time.Duration
}

/*
====================================
CREDENTIAL CONFIG
====================================
*/

// LockoutConfig controls the per-principal failure counter.
type LockoutConfig struct {
	MaxAttempts int
}

// PasswordConfig controls password ageing and hashing of new digests.
type PasswordConfig struct {
	// MaxAge is the oldest accepted password. Zero disables expiry.
	MaxAge      time.Duration
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	BcryptCost  int
}

// SecurityConfig holds the staff hardening switches. Both default to false,
// under which employees bypass the lockout counter and the second factor.
type SecurityConfig struct {
	EnforceStaffLockout      bool
	RequireStaffSecondFactor bool
}

// RateLimitConfig controls the optional per-IP login throttle. It requires
// a Redis client.
type RateLimitConfig struct {
	Enabled     bool
	MaxAttempts int
	Window      time.Duration
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

// AuditConfig controls audit dispatch.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
STORE CONFIG
====================================
*/

// RedisConfig namespaces the shared stores when a Redis client is supplied.
type RedisConfig struct {
	KeyPrefix string
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TTL:           24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "reeutil",
		},
		Captcha: CaptchaConfig{
			TTL: 2 * time.Minute,
		},
		Codes: CodeConfig{
			VerificationTTL: 10 * time.Minute,
			PendingLoginTTL: 10 * time.Minute,
		},
		Lockout: LockoutConfig{
			MaxAttempts: 3,
		},
		Password: PasswordConfig{
			MaxAge:      60 * 24 * time.Hour,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 20,
			Window:      15 * time.Minute,
		},
		Audit: AuditConfig{
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Redis: RedisConfig{
			KeyPrefix: "reeutil",
		},
	}
}

// DefaultConfig returns the production defaults. JWT keys must still be set.
func DefaultConfig() Config {
	return defaultConfig()
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
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

// Validate checks Config for internal consistency. Key material is checked
// later by the token manager.
func (c *Config) Validate() error {
	switch strings.ToLower(c.JWT.SigningMethod) {
	case "hs256", "ed25519":
	default:
		return errors.New("JWT SigningMethod must be hs256 or ed25519")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 {
		return errors.New("JWT Leeway must be >= 0")
	}

	if c.Captcha.TTL <= 0 {
		return errors.New("Captcha TTL must be > 0")
	}
	if c.Codes.VerificationTTL <= 0 {
		return errors.New("Codes VerificationTTL must be > 0")
	}
	if c.Codes.PendingLoginTTL <= 0 {
		return errors.New("Codes PendingLoginTTL must be > 0")
	}

	if c.Lockout.MaxAttempts < 1 {
		return errors.New("Lockout MaxAttempts must be >= 1")
	}

	if c.Password.MaxAge < 0 {
		return errors.New("Password MaxAge must be >= 0")
	}
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("Password Time and Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.MaxAttempts < 1 {
			return errors.New("RateLimit MaxAttempts must be >= 1")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RateLimit Window must be > 0")
		}
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if strings.TrimSpace(c.Redis.KeyPrefix) == "" {
		return errors.New("Redis KeyPrefix must not be empty")
	}

	return nil
}
