// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Exam-question repository (api.enem.dev).
	EnemAPIBaseURL string        `env:"ENEM_API_BASE_URL" envDefault:"https://api.enem.dev/v1"`
	EnemAPITimeout time.Duration `env:"ENEM_API_TIMEOUT" envDefault:"15s"`
	EnemUserAgent  string        `env:"ENEM_USER_AGENT" envDefault:"ENEM-Pro-Plus/1.0"`

	// LLM completion endpoint (OpenRouter, OpenAI-compatible).
	OpenRouterAPIKey  string `env:"OPENROUTER_API_KEY"`
	OpenRouterBaseURL string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterModel   string `env:"OPENROUTER_MODEL" envDefault:"qwen/qwen3-coder:free"`
	OpenRouterReferer string `env:"OPENROUTER_REFERER" envDefault:"http://localhost:3000"`
	OpenRouterTitle   string `env:"OPENROUTER_TITLE" envDefault:"ENEM Pro+"`
	// LLMTimeout bounds a single completion call; generation latency is the
	// dominant cost, so this is deliberately longer than the question timeout.
	LLMTimeout time.Duration `env:"LLM_TIMEOUT" envDefault:"90s"`

	// LLM Backoff Configuration (transient 429/5xx only).
	LLMBackoffMaxElapsedTime  time.Duration `env:"LLM_BACKOFF_MAX_ELAPSED_TIME" envDefault:"45s"`
	LLMBackoffInitialInterval time.Duration `env:"LLM_BACKOFF_INITIAL_INTERVAL" envDefault:"1s"`
	LLMBackoffMaxInterval     time.Duration `env:"LLM_BACKOFF_MAX_INTERVAL" envDefault:"10s"`
	LLMBackoffMultiplier      float64       `env:"LLM_BACKOFF_MULTIPLIER" envDefault:"2.0"`

	// Essay input bounds. MaxEssayChars caps prompt size; 0 disables the cap.
	MaxEssayChars int `env:"MAX_ESSAY_CHARS" envDefault:"20000"`

	OTLPEndpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`
	OTELServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"enem-pro-api"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"30"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// GetLLMBackoffConfig returns backoff settings appropriate for the current
// environment. Test environments use much shorter windows.
func (c Config) GetLLMBackoffConfig() (maxElapsedTime, initialInterval, maxInterval time.Duration, multiplier float64) {
	if c.IsTest() {
		return 2 * time.Second, 50 * time.Millisecond, 500 * time.Millisecond, 2.0
	}
	return c.LLMBackoffMaxElapsedTime, c.LLMBackoffInitialInterval, c.LLMBackoffMaxInterval, c.LLMBackoffMultiplier
}
