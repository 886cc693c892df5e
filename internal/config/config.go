// Package config manages fleettriage configuration.
//
// Configuration comes from a .env file (if present) plus environment
// variable overrides. Credentials (GENERATOR_API_KEY, API_TOKEN_HASH)
// live only in the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Host           string
	Port           int
	AllowedOrigins string
	DataPath       string

	// Logging
	LogLevel  string
	LogFormat string

	// Knowledge base
	KBPath  string
	KBWatch bool

	// External generator (chat completions)
	GeneratorURL     string
	GeneratorAPIKey  string
	GeneratorModel   string
	GeneratorTimeout time.Duration

	// External embedder
	EmbedderURL    string
	EmbedderAPIKey string
	EmbedderModel  string

	// Optional API auth: bcrypt hash of the bearer token. Empty disables auth.
	APITokenHash string

	// Session lifecycle
	SessionMaxAge       time.Duration
	SessionSweepEvery   time.Duration
	TopCriticalDefaultN int
}

// Defaults mirrored in the README
const (
	DefaultPort             = 7870
	DefaultSessionMaxAge    = 24 * time.Hour
	DefaultSweepInterval    = time.Hour
	DefaultGeneratorTimeout = 60 * time.Second
	DefaultTopN             = 5
)

// Load reads .env (when present) and the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with environment only")
	}

	cfg := &Config{
		Host:                getEnv("FLEETTRIAGE_HOST", "0.0.0.0"),
		Port:                getEnvInt("FLEETTRIAGE_PORT", DefaultPort),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "*"),
		DataPath:            getEnv("FLEETTRIAGE_DATA_DIR", "/var/lib/fleettriage"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "auto"),
		KBPath:              getEnv("KB_PATH", "data/it_troubleshooting.csv"),
		KBWatch:             getEnvBool("KB_WATCH", true),
		GeneratorURL:        getEnv("GENERATOR_URL", "https://api.openai.com/v1/chat/completions"),
		GeneratorAPIKey:     os.Getenv("GENERATOR_API_KEY"),
		GeneratorModel:      getEnv("GENERATOR_MODEL", "gpt-4o-mini"),
		GeneratorTimeout:    getEnvDuration("GENERATOR_TIMEOUT", DefaultGeneratorTimeout),
		EmbedderURL:         getEnv("EMBEDDER_URL", "https://api.openai.com/v1/embeddings"),
		EmbedderAPIKey:      os.Getenv("EMBEDDER_API_KEY"),
		EmbedderModel:       getEnv("EMBEDDER_MODEL", "text-embedding-3-small"),
		APITokenHash:        os.Getenv("API_TOKEN_HASH"),
		SessionMaxAge:       getEnvDuration("SESSION_MAX_AGE", DefaultSessionMaxAge),
		SessionSweepEvery:   getEnvDuration("SESSION_SWEEP_INTERVAL", DefaultSweepInterval),
		TopCriticalDefaultN: getEnvInt("TOP_CRITICAL_N", DefaultTopN),
	}

	if cfg.EmbedderAPIKey == "" {
		cfg.EmbedderAPIKey = cfg.GeneratorAPIKey
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.GeneratorTimeout <= 0 {
		return fmt.Errorf("generator timeout must be positive, got %s", c.GeneratorTimeout)
	}
	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session max age must be positive, got %s", c.SessionMaxAge)
	}
	if c.TopCriticalDefaultN < 1 {
		return fmt.Errorf("top critical N must be at least 1, got %d", c.TopCriticalDefaultN)
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Origins returns the configured allowed origins, split and trimmed.
func (c *Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean in environment, using default")
		return fallback
	}
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid duration in environment, using default")
		return fallback
	}
	return d
}
