package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	// Instagram / Meta Graph API
	InstagramToken       string
	InstagramID          string
	InstagramVerifyToken string
	InstagramAppSecret   string
	CatalogImageURL      string

	// LLM providers
	GeminiAPIKey   string
	GeminiModelID  string
	BedrockModelID string
	AWSRegion      string

	// Google Calendar
	GoogleCredentialsFile string

	// Mercado Pago
	MPAccessToken string
	MPBaseURL     string

	// SendGrid confirmation emails
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Conversation behaviour
	Timezone       string
	DebounceWait   time.Duration
	HistoryLimit   int
	MaxToolRounds  int
	SearchHorizon  int
	WorkHoursStart int
	WorkHoursEnd   int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		InstagramToken:       getEnv("INSTAGRAM_TOKEN", ""),
		InstagramID:          getEnv("INSTAGRAM_ID", ""),
		InstagramVerifyToken: getEnv("INSTAGRAM_VERIFY_TOKEN", ""),
		InstagramAppSecret:   getEnv("INSTAGRAM_APP_SECRET", ""),
		CatalogImageURL:      getEnv("CATALOG_IMAGE_URL", ""),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.0-flash"),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),

		GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		MPAccessToken: getEnv("MP_ACCESS_TOKEN", ""),
		MPBaseURL:     getEnv("MP_BASE_URL", "https://api.mercadopago.com"),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Turnero"),

		Timezone:       getEnv("TIMEZONE", "America/Argentina/Cordoba"),
		DebounceWait:   getEnvAsDuration("DEBOUNCE_WAIT", 15*time.Second),
		HistoryLimit:   getEnvAsInt("HISTORY_LIMIT", 10),
		MaxToolRounds:  getEnvAsInt("MAX_TOOL_ROUNDS", 8),
		SearchHorizon:  getEnvAsInt("SEARCH_HORIZON_DAYS", 7),
		WorkHoursStart: getEnvAsInt("WORK_HOURS_START", 9),
		WorkHoursEnd:   getEnvAsInt("WORK_HOURS_END", 20),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
