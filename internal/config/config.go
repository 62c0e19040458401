// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Completion providers accepted in COMPLETION_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables; main loads an
// optional .env file first.
type Config struct {
	HTTP       HTTP
	Log        Log
	Postgres   Postgres
	Auth       Auth
	Completion Completion
	Redis      Redis
	Kafka      Kafka
}

type HTTP struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" env-default:"8080"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" env-default:"http://localhost:3000"`

	// MaxBodyBytes caps every request body.
	MaxBodyBytes int64 `env:"MAX_BODY_BYTES" env-default:"1048576"`
}

type Log struct {
	// Level controls the minimum log level: debug, info, warn, error.
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

type Postgres struct {
	// URL is the Postgres connection string. When empty the document store
	// is unavailable: reads return nothing and writes fail.
	URL string `env:"DATABASE_URL"`

	// MigrateOnStart applies pending goose migrations before serving.
	MigrateOnStart bool `env:"MIGRATE_ON_START" env-default:"true"`
}

type Auth struct {
	// JWTSecret signs session tokens. Required.
	JWTSecret string `env:"JWT_SECRET"`

	// TokenTTL is how long an issued session token stays valid.
	TokenTTL time.Duration `env:"TOKEN_TTL" env-default:"1h"`
}

type Completion struct {
	Provider      string  `env:"COMPLETION_PROVIDER" env-default:"openai"`
	Temperature   float32 `env:"COMPLETION_TEMPERATURE" env-default:"0.75"`
	OpenAIAPIKey  string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `env:"OPENAI_BASE_URL"`
	OpenAIModel   string  `env:"OPENAI_MODEL" env-default:"gpt-4o-mini"`
	GeminiAPIKey  string  `env:"GEMINI_API_KEY"`
	GeminiModel   string  `env:"GEMINI_MODEL" env-default:"gemini-1.5-flash"`
}

// APIKey returns the key of the selected provider. Empty means no gateway.
func (c Completion) APIKey() string {
	if c.Provider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.OpenAIAPIKey
}

type Redis struct {
	// Addr enables the shared change feed, snapshot cache, token denylist
	// and idempotency store. Empty keeps everything in process.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

type Kafka struct {
	// Brokers enables the trip event stream. Empty disables it.
	Brokers []string `env:"KAFKA_BROKERS"`
	Topic   string   `env:"KAFKA_TOPIC" env-default:"trip-events"`
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// values that are set but invalid.
func Load() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	cfg.HTTP.CORSOrigins = trimAll(cfg.HTTP.CORSOrigins)
	cfg.Kafka.Brokers = trimAll(cfg.Kafka.Brokers)
	cfg.Completion.Provider = strings.ToLower(strings.TrimSpace(cfg.Completion.Provider))

	var missing []string
	if cfg.Auth.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", "))
	}

	switch cfg.Completion.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return Config{}, fmt.Errorf("COMPLETION_PROVIDER must be %q or %q, got %q",
			ProviderOpenAI, ProviderGemini, cfg.Completion.Provider)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return Config{}, fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.Auth.TokenTTL)
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", cfg.HTTP.MaxBodyBytes)
	}

	return cfg, nil
}

// trimAll trims each entry and drops empty ones.
func trimAll(in []string) []string {
	var out []string
	for _, part := range in {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
