// Package config loads service settings for the reeutil binaries.
//
// Sources apply in order, later ones winning: built-in defaults, an optional
// YAML file, a .env file, then the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	reeutil "github.com/MrBl4ck04/ReeUtil-sub000"
)

// Service is everything cmd/reeutil-auth and cmd/reeutil-mailrelay need.
type Service struct {
	Env       string `yaml:"env"`
	HTTPAddr  string `yaml:"httpAddr"`
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// Store is memory, mongo, or mysql.
	Store    string `yaml:"store"`
	SeedFile string `yaml:"seedFile"`

	Mongo MongoSettings `yaml:"mongo"`
	MySQL MySQLSettings `yaml:"mysql"`
	Redis RedisSettings `yaml:"redis"`

	// Mailer is log or amqp.
	Mailer string       `yaml:"mailer"`
	AMQP   AMQPSettings `yaml:"amqp"`
	SMTP   SMTPSettings `yaml:"smtp"`

	Auth AuthSettings `yaml:"auth"`
}

type MongoSettings struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type MySQLSettings struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Name     string `yaml:"name"`
}

// RedisSettings leaves Addr empty to keep every store in process.
type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AMQPSettings struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type SMTPSettings struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// AuthSettings are the engine knobs exposed to operators.
type AuthSettings struct {
	JWTSecret                string        `yaml:"jwtSecret"`
	TokenTTL                 time.Duration `yaml:"tokenTTL"`
	CaptchaTTL               time.Duration `yaml:"captchaTTL"`
	CodeTTL                  time.Duration `yaml:"codeTTL"`
	PendingLoginTTL          time.Duration `yaml:"pendingLoginTTL"`
	MaxLoginAttempts         int           `yaml:"maxLoginAttempts"`
	PasswordMaxAge           time.Duration `yaml:"passwordMaxAge"`
	BcryptCost               int           `yaml:"bcryptCost"`
	RateLimitPerIP           int           `yaml:"rateLimitPerIP"`
	RateLimitWindow          time.Duration `yaml:"rateLimitWindow"`
	EnforceStaffLockout      bool          `yaml:"enforceStaffLockout"`
	RequireStaffSecondFactor bool          `yaml:"requireStaffSecondFactor"`
	Audit                    bool          `yaml:"audit"`
}

// Defaults returns settings for a local run: memory store, log mailer, no
// Redis.
func Defaults() Service {
	d := reeutil.DefaultConfig()
	return Service{
		Env:       "dev",
		HTTPAddr:  ":8080",
		LogLevel:  "info",
		LogFormat: "text",
		Store:     "memory",
		Mongo:     MongoSettings{Database: "reeutil"},
		MySQL:     MySQLSettings{Host: "127.0.0.1", Port: "3306", Name: "reeutil"},
		Mailer:    "log",
		AMQP:      AMQPSettings{Queue: "auth.codes"},
		SMTP:      SMTPSettings{Port: 587},
		Auth: AuthSettings{
			TokenTTL:         d.JWT.TTL,
			CaptchaTTL:       d.Captcha.TTL,
			CodeTTL:          d.Codes.VerificationTTL,
			PendingLoginTTL:  d.Codes.PendingLoginTTL,
			MaxLoginAttempts: d.Lockout.MaxAttempts,
			PasswordMaxAge:   d.Password.MaxAge,
			BcryptCost:       d.Password.BcryptCost,
			RateLimitPerIP:   d.RateLimit.MaxAttempts,
			RateLimitWindow:  d.RateLimit.Window,
		},
	}
}

// Load reads and validates a Service for the auth server.
func Load(path, dotenv string) (Service, error) {
	s, err := Read(path, dotenv)
	if err != nil {
		return Service{}, err
	}
	return s, s.Validate()
}

// Read builds a Service without validating it. path may be empty. A missing
// .env file is not an error; a missing YAML file named by path is.
func Read(path, dotenv string) (Service, error) {
	s := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Service{}, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &s); err != nil {
			return Service{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	if dotenv != "" {
		// godotenv.Load never overrides variables already set.
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Service{}, fmt.Errorf("dotenv %s: %w", dotenv, err)
		}
	}

	var env envReader
	env.strVar("APP_ENV", &s.Env)
	env.strVar("HTTP_ADDR", &s.HTTPAddr)
	env.strVar("LOG_LEVEL", &s.LogLevel)
	env.strVar("LOG_FORMAT", &s.LogFormat)
	env.strVar("STORE", &s.Store)
	env.strVar("SEED_FILE", &s.SeedFile)
	env.strVar("MONGO_URI", &s.Mongo.URI)
	env.strVar("MONGO_DB", &s.Mongo.Database)
	env.strVar("DB_USER", &s.MySQL.User)
	env.strVar("DB_PASS", &s.MySQL.Password)
	env.strVar("DB_HOST", &s.MySQL.Host)
	env.strVar("DB_PORT", &s.MySQL.Port)
	env.strVar("DB_NAME", &s.MySQL.Name)
	env.strVar("REDIS_ADDR", &s.Redis.Addr)
	env.strVar("REDIS_PASSWORD", &s.Redis.Password)
	env.intVar("REDIS_DB", &s.Redis.DB)
	env.strVar("MAILER", &s.Mailer)
	env.strVar("AMQP_URL", &s.AMQP.URL)
	env.strVar("AMQP_QUEUE", &s.AMQP.Queue)
	env.strVar("SMTP_HOST", &s.SMTP.Host)
	env.intVar("SMTP_PORT", &s.SMTP.Port)
	env.strVar("SMTP_USER", &s.SMTP.Username)
	env.strVar("SMTP_PASS", &s.SMTP.Password)
	env.strVar("SMTP_FROM", &s.SMTP.From)
	env.strVar("JWT_SECRET", &s.Auth.JWTSecret)
	env.durVar("TOKEN_TTL", &s.Auth.TokenTTL)
	env.durVar("CAPTCHA_TTL", &s.Auth.CaptchaTTL)
	env.durVar("CODE_TTL", &s.Auth.CodeTTL)
	env.durVar("PENDING_LOGIN_TTL", &s.Auth.PendingLoginTTL)
	env.intVar("MAX_LOGIN_ATTEMPTS", &s.Auth.MaxLoginAttempts)
	env.durVar("PASSWORD_MAX_AGE", &s.Auth.PasswordMaxAge)
	env.intVar("BCRYPT_COST", &s.Auth.BcryptCost)
	env.intVar("RATE_LIMIT_PER_IP", &s.Auth.RateLimitPerIP)
	env.durVar("RATE_LIMIT_WINDOW", &s.Auth.RateLimitWindow)
	env.boolVar("ENFORCE_STAFF_LOCKOUT", &s.Auth.EnforceStaffLockout)
	env.boolVar("REQUIRE_STAFF_SECOND_FACTOR", &s.Auth.RequireStaffSecondFactor)
	env.boolVar("AUDIT", &s.Auth.Audit)
	if err := errors.Join(env.errs...); err != nil {
		return Service{}, err
	}
	return s, nil
}

// Validate checks choices and the settings each choice requires.
func (s Service) Validate() error {
	var errs []error
	switch s.Store {
	case "memory":
	case "mongo":
		if s.Mongo.URI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store"))
		}
	case "mysql":
		if s.MySQL.User == "" || s.MySQL.Host == "" || s.MySQL.Name == "" {
			errs = append(errs, errors.New("DB_USER, DB_HOST and DB_NAME are required for the mysql store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", s.Store))
	}
	switch s.Mailer {
	case "log":
	case "amqp":
		if s.AMQP.URL == "" {
			errs = append(errs, errors.New("AMQP_URL is required for the amqp mailer"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown mailer %q", s.Mailer))
	}
	if s.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("missing required env var: JWT_SECRET"))
	}
	return errors.Join(errs...)
}

// Engine maps the operator settings onto an engine Config.
func (s Service) Engine() reeutil.Config {
	cfg := reeutil.DefaultConfig()
	a := s.Auth

	cfg.JWT.PrivateKey = []byte(a.JWTSecret)
	cfg.JWT.TTL = a.TokenTTL
	cfg.Captcha.TTL = a.CaptchaTTL
	cfg.Codes.VerificationTTL = a.CodeTTL
	cfg.Codes.PendingLoginTTL = a.PendingLoginTTL
	cfg.Lockout.MaxAttempts = a.MaxLoginAttempts
	cfg.Password.MaxAge = a.PasswordMaxAge
	cfg.Password.BcryptCost = a.BcryptCost
	cfg.Security.EnforceStaffLockout = a.EnforceStaffLockout
	cfg.Security.RequireStaffSecondFactor = a.RequireStaffSecondFactor
	cfg.Audit.Enabled = a.Audit

	// The throttle and the shared stores both need Redis.
	cfg.RateLimit.Enabled = s.Redis.Addr != "" && a.RateLimitPerIP > 0
	cfg.RateLimit.MaxAttempts = a.RateLimitPerIP
	cfg.RateLimit.Window = a.RateLimitWindow
	return cfg
}

// envReader applies set environment variables and collects parse errors.
type envReader struct {
	errs []error
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (r *envReader) strVar(key string, dst *string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func (r *envReader) intVar(key string, dst *int) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid int for %s: %q", key, v))
		return
	}
	*dst = n
}

func (r *envReader) durVar(key string, dst *time.Duration) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid duration for %s: %q", key, v))
		return
	}
	*dst = d
}

func (r *envReader) boolVar(key string, dst *bool) {
	v, ok := lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("invalid bool for %s: %q", key, v))
		return
	}
	*dst = b
}
