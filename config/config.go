package config

import (
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// API Configuration
	APIPort        string
	APIHost        string
	APIEnvironment string

	// Generation backend
	GenerationBackendURL string
	PlaceholderModelURL  string
	GenerationTimeoutSec int

	// Redis
	RedisURL string

	// JWT & Security
	JWTSecret          string
	JWTExpirationHours int
	CSRFTokenTTLSec    int

	// Rate Limiting
	RateLimitRequestsPerMinute int
	RateLimitBurst             int

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripePriceBasic    string
	StripePricePro      string
	StripePriceOneTime  string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string

	// OpenAI prompt refinement (optional)
	OpenAIAPIKey string

	// Sentry
	SentryDSN         string
	SentryEnvironment string

	// Frontend
	FrontendURL string

	// Email
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string

	// Logging
	LogLevel string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		// API
		APIPort:        getEnv("API_PORT", "8080"),
		APIHost:        getEnv("API_HOST", "0.0.0.0"),
		APIEnvironment: getEnv("API_ENVIRONMENT", "development"),

		// Generation backend
		GenerationBackendURL: getEnv("GENERATION_BACKEND_URL", "http://localhost:9090/api/generate"),
		PlaceholderModelURL:  getEnv("PLACEHOLDER_MODEL_URL", "https://assets.modelforge.io/placeholder/cube.glb"),
		GenerationTimeoutSec: getEnvAsInt("GENERATION_TIMEOUT_SECONDS", 120),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),

		// JWT
		JWTSecret:          getEnv("JWT_SECRET", "change-this-in-production"),
		JWTExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		CSRFTokenTTLSec:    getEnvAsInt("CSRF_TOKEN_TTL_SECONDS", 900),

		// Rate Limiting
		RateLimitRequestsPerMinute: getEnvAsInt("RATE_LIMIT_REQUESTS_PER_MINUTE", 60),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 10),

		// Stripe
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripePriceBasic:    getEnv("STRIPE_PRICE_BASIC", ""),
		StripePricePro:      getEnv("STRIPE_PRICE_PRO", ""),
		StripePriceOneTime:  getEnv("STRIPE_PRICE_ONETIME", ""),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/checkout/success"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/checkout/cancel"),

		// OpenAI
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),

		// Sentry
		SentryDSN:         getEnv("SENTRY_DSN", ""),
		SentryEnvironment: getEnv("SENTRY_ENVIRONMENT", "development"),

		// Frontend
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		// Email
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@modelforge.io"),
		EmailFromName:  getEnv("EMAIL_FROM_NAME", "ModelForge"),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}
