package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DATABASE_URL":          "postgres://u:p@localhost:5432/codereview?sslmode=disable",
		"RESET_TOKEN_SECRET":    "0123456789abcdef0123",
		"STRIPE_SECRET_KEY":     "sk_test_123",
		"STRIPE_WEBHOOK_SECRET": "whsec_123",
		"STRIPE_PRICE_BASIC":    "price_basic",
		"OPENAI_API_KEY":        "sk-openai",
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.OtpTTL)
	assert.Equal(t, 6, cfg.Auth.OtpLength)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, QuotaWindowBillingPeriod, cfg.Auth.QuotaWindow)
	assert.False(t, cfg.Auth.InvalidateSessionsOnPasswordReset)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "sk-openai", cfg.AI.APIKey())
}

func TestParse_MissingStripeSecretsIsFatal(t *testing.T) {
	for _, key := range []string{"STRIPE_SECRET_KEY", "STRIPE_WEBHOOK_SECRET"} {
		t.Run(key, func(t *testing.T) {
			vars := baseEnv()
			delete(vars, key)

			_, err := Parse(env.Options{Environment: vars})
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestParse_RejectsUnknownQuotaWindow(t *testing.T) {
	vars := baseEnv()
	vars["QUOTA_WINDOW"] = "weekly"

	_, err := Parse(env.Options{Environment: vars})
	require.Error(t, err)
}

func TestParse_RequiresKeyForSelectedProvider(t *testing.T) {
	vars := baseEnv()
	vars["AI_PROVIDER"] = "gemini"

	_, err := Parse(env.Options{Environment: vars})
	require.Error(t, err)

	vars["GEMINI_API_KEY"] = "g-key"
	cfg, err := Parse(env.Options{Environment: vars})
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", cfg.AI.Model())
}

func TestParse_RequiresAtLeastOnePrice(t *testing.T) {
	vars := baseEnv()
	delete(vars, "STRIPE_PRICE_BASIC")

	_, err := Parse(env.Options{Environment: vars})
	require.Error(t, err)
}

func TestParse_Overrides(t *testing.T) {
	vars := baseEnv()
	vars["INVALIDATE_SESSIONS_ON_PASSWORD_RESET"] = "true"
	vars["QUOTA_WINDOW"] = "all_time"
	vars["CORS_ORIGINS"] = "https://a.example,https://b.example"
	vars["OTP_TTL"] = "5m"

	cfg, err := Parse(env.Options{Environment: vars})
	require.NoError(t, err)
	assert.True(t, cfg.Auth.InvalidateSessionsOnPasswordReset)
	assert.Equal(t, QuotaWindowAllTime, cfg.Auth.QuotaWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 5*time.Minute, cfg.Auth.OtpTTL)
}
