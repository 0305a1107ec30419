// Package config loads process-wide settings once at startup.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type QuotaWindow string

const (
	QuotaWindowAllTime       QuotaWindow = "all_time"
	QuotaWindowBillingPeriod QuotaWindow = "billing_period"
	QuotaWindowCalendarMonth QuotaWindow = "calendar_month"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"8080"`
	Env         string   `env:"APP_ENV" envDefault:"development" validate:"oneof=development production test"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL string   `env:"DATABASE_URL,required"`
	RedisURL    string   `env:"REDIS_URL"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	AppName     string   `env:"APP_NAME" envDefault:"CodeReview"`
	AppBaseURL  string   `env:"APP_BASE_URL" envDefault:"http://localhost:3000" validate:"url"`

	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20" validate:"gte=0"`

	Auth    AuthConfig
	Billing BillingConfig
	SMTP    SMTPConfig
	AI      AIConfig
}

type AuthConfig struct {
	ResetTokenSecret string        `env:"RESET_TOKEN_SECRET,required" validate:"min=16"`
	ResetTokenTTL    time.Duration `env:"RESET_TOKEN_TTL" envDefault:"1h" validate:"gt=0"`
	SessionTTL       time.Duration `env:"SESSION_TTL" envDefault:"720h" validate:"gt=0"`
	OtpTTL           time.Duration `env:"OTP_TTL" envDefault:"10m" validate:"gt=0"`
	OtpLength        int           `env:"OTP_LENGTH" envDefault:"6" validate:"gte=4,lte=9"`
	OtpMaxAttempts   int           `env:"OTP_MAX_ATTEMPTS" envDefault:"5" validate:"gte=1"`
	BcryptCost       int           `env:"BCRYPT_COST" envDefault:"12" validate:"gte=4,lte=31"`

	InvalidateSessionsOnPasswordReset bool `env:"INVALIDATE_SESSIONS_ON_PASSWORD_RESET" envDefault:"false"`

	QuotaWindow QuotaWindow `env:"QUOTA_WINDOW" envDefault:"billing_period" validate:"oneof=all_time billing_period calendar_month"`
}

type BillingConfig struct {
	SecretKey       string `env:"STRIPE_SECRET_KEY,required"`
	WebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET,required"`
	PriceBasic      string `env:"STRIPE_PRICE_BASIC"`
	PriceAdvanced   string `env:"STRIPE_PRICE_ADVANCED"`
	PriceEnterprise string `env:"STRIPE_PRICE_ENTERPRISE"`
}

type SMTPConfig struct {
	Host      string `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	From      string `env:"SMTP_FROM" validate:"omitempty,email"`
	FromName  string `env:"SMTP_FROM_NAME" envDefault:"CodeReview"`
	QueueSize int    `env:"MAIL_QUEUE_SIZE" envDefault:"100" validate:"gte=1"`
}

type AIConfig struct {
	Provider     string        `env:"AI_PROVIDER" envDefault:"openai" validate:"oneof=openai gemini"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey string        `env:"GEMINI_API_KEY"`
	GeminiModel  string        `env:"GEMINI_MODEL" envDefault:"gemini-1.5-flash"`
	Timeout      time.Duration `env:"AI_TIMEOUT" envDefault:"60s" validate:"gt=0"`
}

// APIKey returns the key of the selected provider.
func (a AIConfig) APIKey() string {
	if a.Provider == "gemini" {
		return a.GeminiAPIKey
	}
	return a.OpenAIAPIKey
}

func (a AIConfig) Model() string {
	if a.Provider == "gemini" {
		return a.GeminiModel
	}
	return a.OpenAIModel
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse(env.Options{})
}

// Parse builds the config from the given env options; tests pass Environment directly.
func Parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.AI.APIKey() == "" {
		return fmt.Errorf("invalid config: API key for AI provider %q is required", c.AI.Provider)
	}
	if c.Billing.PriceBasic == "" && c.Billing.PriceAdvanced == "" && c.Billing.PriceEnterprise == "" {
		return errors.New("invalid config: at least one STRIPE_PRICE_* must be set")
	}
	return nil
}
