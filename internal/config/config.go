package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all environment-driven configuration for the assistant.
//
// The two secrets (model provider key and Google OAuth client secret) are
// required: their absence is a fatal configuration error detected once at
// startup, before the pipeline is reachable.
type Config struct {
	// OpenAIAPIKey authenticates against the model provider.
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" required:"true"`

	// GoogleClientID and GoogleClientSecret identify the OAuth2 application
	// used to authorize calendar access.
	GoogleClientID     string `envconfig:"GOOGLE_CLIENT_ID" required:"true"`
	GoogleClientSecret string `envconfig:"GOOGLE_CLIENT_SECRET" required:"true"`

	// Model is the chat completion model used for intent extraction.
	Model string `envconfig:"VOICECAL_MODEL" default:"gpt-4o-mini"`

	// CalendarID is the calendar all operations target.
	CalendarID string `envconfig:"VOICECAL_CALENDAR_ID" default:"primary"`

	// MinConfidence is the extraction confidence below which the assistant
	// asks for clarification instead of acting.
	MinConfidence float64 `envconfig:"VOICECAL_MIN_CONFIDENCE" default:"0.5"`

	// RequestTimeout bounds each external call (model or calendar API).
	RequestTimeout time.Duration `envconfig:"VOICECAL_REQUEST_TIMEOUT" default:"30s"`

	// MaxRetries caps retries of transient failures per external call.
	MaxRetries int `envconfig:"VOICECAL_MAX_RETRIES" default:"3"`

	// ContextEvents caps the number of recent events included in the
	// extraction prompt.
	ContextEvents int `envconfig:"VOICECAL_CONTEXT_EVENTS" default:"20"`

	// TimeZone is the IANA zone used to resolve relative dates when the
	// utterance does not carry one. "Local" means the system zone.
	TimeZone string `envconfig:"VOICECAL_TIMEZONE" default:"Local"`

	// LogLevel sets the slog level: debug, info, warn, error.
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment. Missing required secrets
// surface as an error here so main can fail fast.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges that envconfig tags cannot express.
func (c *Config) Validate() error {
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("VOICECAL_MIN_CONFIDENCE must be in [0, 1], got %f", c.MinConfidence)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("VOICECAL_MAX_RETRIES must be >= 0, got %d", c.MaxRetries)
	}
	if c.ContextEvents <= 0 {
		return fmt.Errorf("VOICECAL_CONTEXT_EVENTS must be > 0, got %d", c.ContextEvents)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("VOICECAL_REQUEST_TIMEOUT must be > 0, got %s", c.RequestTimeout)
	}
	return nil
}
