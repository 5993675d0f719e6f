package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the core runtime configuration for the service.
// Values are sourced from environment variables, with sensible
// defaults where appropriate. See .env.example.
type Config struct {
	// AppEnv selects logging output ("dev"/"development" gets a console writer).
	AppEnv string

	ListenAddr string

	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration

	// AuthSecret signs session tokens. Required outside dev.
	AuthSecret   []byte
	TokenTTL     time.Duration
	CookieSecure bool

	// RedisAddr enables the dashboard stats cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	StatsCacheTTL time.Duration

	// UsageRetentionDays bounds how long api_usage rows are kept.
	UsageRetentionDays int

	// APIUsageLimit is the monthly API call allowance reported by analytics.
	APIUsageLimit int

	// PublicRatePerMinute limits embedded widget submissions per client IP.
	PublicRatePerMinute int

	// TrustedProxies lists the IPs or CIDR ranges allowed to set
	// X-Forwarded-For. Empty means the peer address is always used.
	TrustedProxies []string
}

// Load reads configuration from environment variables and applies defaults.
func Load() *Config {
	cfg := &Config{
		AppEnv:              getenv("APP_ENV", "prod"),
		ListenAddr:          getenv("APP_LISTEN_ADDR", ":8080"),
		DatabaseURL:         os.Getenv("APP_DATABASE_URL"),
		DBMaxOpenConns:      atoi("APP_DB_MAX_OPEN_CONNS", 10),
		DBMaxIdleConns:      atoi("APP_DB_MAX_IDLE_CONNS", 2),
		DBConnLifetime:      time.Duration(atoi("APP_DB_CONN_LIFETIME_MINUTES", 30)) * time.Minute,
		AuthSecret:          []byte(os.Getenv("APP_AUTH_SECRET")),
		TokenTTL:            time.Duration(atoi("APP_TOKEN_TTL_HOURS", 7*24)) * time.Hour,
		CookieSecure:        getbool("APP_COOKIE_SECURE", false),
		RedisAddr:           os.Getenv("APP_REDIS_ADDR"),
		RedisPassword:       os.Getenv("APP_REDIS_PASSWORD"),
		RedisDB:             atoi("APP_REDIS_DB", 0),
		StatsCacheTTL:       time.Duration(atoi("APP_STATS_CACHE_TTL_SECONDS", 30)) * time.Second,
		UsageRetentionDays:  atoi("APP_USAGE_RETENTION_DAYS", 90),
		APIUsageLimit:       atoi("APP_API_USAGE_LIMIT", 10000),
		PublicRatePerMinute: atoi("APP_PUBLIC_RATE_PER_MINUTE", 30),
		TrustedProxies:      splitList(os.Getenv("APP_TRUSTED_PROXIES")),
	}

	if len(cfg.AuthSecret) == 0 && cfg.IsDev() {
		cfg.AuthSecret = []byte("dev-only-insecure-secret-change-me")
	}

	return cfg
}

// IsDev reports whether the service runs in a development environment.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func getbool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
