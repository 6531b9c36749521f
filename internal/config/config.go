package config

import (
	"fmt"
	"net/netip"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/oops"
)

// Token strategies
const (
	TokenStrategyPaseto = "paseto"
	TokenStrategyJWT    = "jwt"
)

// Store backends
const (
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Email     EmailConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port            string
	Env             string // dev or prod
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TrustedOrigins  []string // CORS allowed origins for cookie auth
	TrustedProxies  []string // IPs or CIDRs whose forwarding headers are honored
}

type DatabaseConfig struct {
	Backend         string // postgres or memory
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	ChannelBinding  string // "require" for Neon DB, empty for local
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	Host     string // empty disables Redis
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	TokenStrategy   string
	TokenKey        []byte // 32 bytes for paseto, at least 32 for jwt
	TokenTTL        time.Duration
	ResetTokenTTL   time.Duration
	HashConcurrency int
	Argon2Time      uint32
	Argon2MemoryKiB uint32
	Argon2Threads   uint8
	AllowSignupRole bool
	CookieName      string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	FromEmail    string
	FrontendURL  string // base URL for reset links
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Cooldown time.Duration
}

// Load reads configuration from environment variables, loading a .env file
// first when one exists
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds and validates the configuration from the environment
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Env:             getEnv("APP_ENV", "dev"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 15*time.Second),
			TrustedOrigins:  getSliceEnv("TRUSTED_ORIGINS", []string{"http://localhost:3000"}),
			TrustedProxies:  getSliceEnv("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Backend:         strings.ToLower(getEnv("STORE_BACKEND", StoreBackendPostgres)),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "natours"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			ChannelBinding:  getEnv("DB_CHANNEL_BINDING", ""),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			TokenStrategy:   strings.ToLower(getEnv("AUTH_TOKEN_STRATEGY", TokenStrategyPaseto)),
			TokenKey:        []byte(getEnv("AUTH_TOKEN_KEY", "")),
			TokenTTL:        getDurationEnv("AUTH_TOKEN_TTL", 90*24*time.Hour),
			ResetTokenTTL:   getDurationEnv("AUTH_RESET_TOKEN_TTL", 10*time.Minute),
			HashConcurrency: getIntEnv("AUTH_HASH_CONCURRENCY", runtime.NumCPU()),
			Argon2Time:      uint32(getIntEnv("AUTH_ARGON2_TIME", 3)),
			Argon2MemoryKiB: uint32(getIntEnv("AUTH_ARGON2_MEMORY_KIB", 64*1024)),
			Argon2Threads:   uint8(getIntEnv("AUTH_ARGON2_THREADS", 4)),
			AllowSignupRole: getBoolEnv("AUTH_ALLOW_SIGNUP_ROLE", false),
			CookieName:      getEnv("AUTH_COOKIE_NAME", "jwt"),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASS", ""),
			FromEmail:    getEnv("EMAIL_FROM", ""),
			FrontendURL:  getEnv("FRONTEND_URL", "http://localhost:3000"),
		},
		RateLimit: RateLimitConfig{
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 10),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
			Cooldown: getDurationEnv("RATE_LIMIT_COOLDOWN", 2*time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail at first use
func (c *Config) Validate() error {
	errb := oops.In("config").Code("CONFIG_INVALID")

	switch c.Auth.TokenStrategy {
	case TokenStrategyPaseto:
		// PASETO v4.local needs exactly 32 bytes
		if len(c.Auth.TokenKey) != 32 {
			return errb.With("key", "AUTH_TOKEN_KEY").Errorf("AUTH_TOKEN_KEY must be exactly 32 bytes for paseto, got %d", len(c.Auth.TokenKey))
		}
	case TokenStrategyJWT:
		if len(c.Auth.TokenKey) < 32 {
			return errb.With("key", "AUTH_TOKEN_KEY").Errorf("AUTH_TOKEN_KEY must be at least 32 bytes for jwt, got %d", len(c.Auth.TokenKey))
		}
	default:
		return errb.With("key", "AUTH_TOKEN_STRATEGY").Errorf("unknown token strategy %q", c.Auth.TokenStrategy)
	}

	switch c.Database.Backend {
	case StoreBackendPostgres, StoreBackendMemory:
	default:
		return errb.With("key", "STORE_BACKEND").Errorf("unknown store backend %q", c.Database.Backend)
	}

	if _, err := ParseTrustedProxies(c.Server.TrustedProxies); err != nil {
		return errb.With("key", "TRUSTED_PROXIES").Wrap(err)
	}

	if c.Auth.TokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return errb.Errorf("token lifetimes must be positive")
	}
	if c.Auth.Argon2Threads == 0 || c.Auth.Argon2Time == 0 || c.Auth.Argon2MemoryKiB < 8*uint32(c.Auth.Argon2Threads) {
		return errb.With("key", "AUTH_ARGON2_*").Errorf("invalid argon2 parameters")
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)

	// Add channel_binding if configured (required for Neon DB)
	if c.ChannelBinding != "" {
		connStr += fmt.Sprintf(" channel_binding=%s", c.ChannelBinding)
	}

	return connStr
}

// MigrationURL returns the postgres:// URL golang-migrate expects
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// Enabled reports whether a Redis host is configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// Address returns Redis connection address (host:port)
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// ProxyPrefixes returns the parsed trusted proxies. Invalid entries are
// rejected by Validate and skipped here.
func (c *ServerConfig) ProxyPrefixes() []netip.Prefix {
	prefixes, _ := ParseTrustedProxies(c.TrustedProxies)
	return prefixes
}

// ParseTrustedProxies parses IP addresses and CIDR ranges. A bare address
// becomes a single-host prefix.
func ParseTrustedProxies(values []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(values))
	var bad []string
	for _, v := range values {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				bad = append(bad, v)
				continue
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			bad = append(bad, v)
			continue
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	if len(bad) > 0 {
		return prefixes, fmt.Errorf("invalid trusted proxies: %s", strings.Join(bad, ", "))
	}
	return prefixes, nil
}

// IsDevelopment returns true if the environment is set to dev
func (c *ServerConfig) IsDevelopment() bool {
	return c.Env == "dev"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getDurationEnv accepts integer seconds, Go duration strings and a "d"
// suffix for days ("90d")
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	d, err := parseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func parseDuration(value string) (time.Duration, error) {
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(value)
}

func getSliceEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Split by comma and trim whitespace
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
