package startup

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tubegate/internal/logging"
	"tubegate/internal/memory"
	"tubegate/internal/remux"
	"tubegate/internal/workers"
)

// DefaultAdminPassword is the shared secret used when neither ADMIN_PASSWORD
// nor ADMIN_PASSWORD_HASH is set.
const DefaultAdminPassword = "admin"

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	// AdminPassword is the plain shared secret; AdminPasswordHash, when set,
	// is a bcrypt hash that takes precedence over it.
	AdminPassword     string
	AdminPasswordHash string

	// Environment is APP_ENV; "production" marks cookies Secure.
	Environment string
	Production  bool

	CookiesInline string
	CookiesFile   string

	FFmpegPath     string
	RemuxInputMode remux.InputMode
	// MaxRemuxJobs is 0 until ResolveRemuxJobs picks a default.
	MaxRemuxJobs int

	UpstreamTimeout    time.Duration
	StreamWriteTimeout time.Duration
	StreamIdleTimeout  time.Duration

	LogStaticFiles  bool
	LogHealthChecks bool

	// FFmpegAvailable is set by LogRemuxerInit.
	FFmpegAvailable bool
}

func configFromEnv() (*Config, error) {
	return configFrom(os.Getenv)
}

func configFrom(getenv func(string) string) (*Config, error) {
	env := envSource(getenv)

	mode, err := remux.ParseInputMode(env.str("REMUX_INPUT_MODE", string(remux.InputURL)))
	if err != nil {
		return nil, fmt.Errorf("invalid REMUX_INPUT_MODE: %w", err)
	}

	config := &Config{
		Port:               env.str("PORT", "3000"),
		MetricsPort:        env.str("METRICS_PORT", "9090"),
		MetricsEnabled:     env.boolean("METRICS_ENABLED", true),
		AdminPassword:      env.str("ADMIN_PASSWORD", DefaultAdminPassword),
		AdminPasswordHash:  strings.TrimSpace(getenv("ADMIN_PASSWORD_HASH")),
		Environment:        env.str("APP_ENV", "development"),
		CookiesInline:      getenv("YOUTUBE_COOKIES"),
		CookiesFile:        env.str("COOKIES_FILE", "cookies.json"),
		FFmpegPath:         env.str("FFMPEG_PATH", "ffmpeg"),
		RemuxInputMode:     mode,
		MaxRemuxJobs:       env.positiveInt("MAX_REMUX_JOBS", 0),
		UpstreamTimeout:    env.duration("UPSTREAM_TIMEOUT", 30*time.Second),
		StreamWriteTimeout: env.duration("STREAM_WRITE_TIMEOUT", 30*time.Second),
		StreamIdleTimeout:  env.duration("STREAM_IDLE_TIMEOUT", 60*time.Second),
		LogStaticFiles:     env.boolean("LOG_STATIC_FILES", false),
		LogHealthChecks:    env.boolean("LOG_HEALTH_CHECKS", true),
	}
	config.Production = strings.EqualFold(config.Environment, "production")

	if config.AdminPasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(config.AdminPasswordHash)); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_PASSWORD_HASH: %w", err)
		}
	}

	return config, nil
}

// PasswordHash returns the bcrypt hash the auth handler compares against.
// A plain ADMIN_PASSWORD is hashed here, once, at startup.
func (c *Config) PasswordHash() ([]byte, error) {
	if c.AdminPasswordHash != "" {
		return []byte(c.AdminPasswordHash), nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(c.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	return hash, nil
}

// ResolveRemuxJobs fills in MaxRemuxJobs when MAX_REMUX_JOBS was not set,
// sizing it from the CPUs and the memory the Go heap leaves to ffmpeg.
func (c *Config) ResolveRemuxJobs(mem memory.ConfigResult) {
	if c.MaxRemuxJobs > 0 {
		return
	}
	c.MaxRemuxJobs = workers.RemuxSlots(mem.Headroom())
}

func (c *Config) secretState() string {
	switch {
	case c.AdminPasswordHash != "":
		return "bcrypt hash (ADMIN_PASSWORD_HASH)"
	case c.AdminPassword == DefaultAdminPassword:
		return "default"
	default:
		return "set"
	}
}

// envSource reads typed settings. Empty values take the default; malformed
// ones are logged and take the default too.
type envSource func(string) string

func (e envSource) str(key, def string) string {
	if v := e(key); v != "" {
		return v
	}
	return def
}

func (e envSource) boolean(key string, def bool) bool {
	v := e(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, v, def)
		return def
	}
	return parsed
}

// positiveInt rejects zero and negative values.
func (e envSource) positiveInt(key string, def int) int {
	v := e(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 1 {
		e.invalid(key, v, def)
		return def
	}
	return parsed
}

func (e envSource) duration(key string, def time.Duration) time.Duration {
	v := e(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed < 0 {
		e.invalid(key, v, def)
		return def
	}
	return parsed
}

func (envSource) invalid(key, value string, def interface{}) {
	logging.Warn("Invalid value for %s: %q, using default: %v", key, value, def)
}
