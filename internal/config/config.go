package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Tenant / business identity
	DefaultOrgID  string
	BusinessName  string
	Services      []string
	BusinessHours string
	BusinessTZ    string
	BookingURL    string

	// Response routing
	CorpusPath          string
	SimilarityThreshold float64
	MaxVocabulary       int
	SessionTTL          time.Duration

	// Generative fallback
	GeminiAPIKey      string
	GeminiModelID     string
	GenerativeTimeout time.Duration

	// Appointment scheduling
	ConflictCheckingEnabled bool
	SlotStepMinutes         int
	SlotSearchHorizonDays   int

	// Email notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	SESFromName       string

	// AWS (only needed when EmailProvider is "ses")
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DefaultOrgID:  getEnv("DEFAULT_ORG_ID", "default"),
		BusinessName:  getEnv("BUSINESS_NAME", "Concierge AI"),
		Services:      getEnvAsList("BUSINESS_SERVICES", []string{"consultations", "appointments", "customer support"}),
		BusinessHours: getEnv("BUSINESS_HOURS", "mon=09:00-17:00,tue=09:00-17:00,wed=09:00-17:00,thu=09:00-17:00,fri=09:00-17:00"),
		BusinessTZ:    getEnv("BUSINESS_TZ", "UTC"),
		BookingURL:    getEnv("BOOKING_URL", ""),

		CorpusPath:          getEnv("CORPUS_PATH", "configs/corpus.json"),
		SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.30),
		MaxVocabulary:       getEnvAsInt("MAX_VOCABULARY", 5000),
		SessionTTL:          getEnvAsDuration("SESSION_TTL", 24*time.Hour),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:     getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		GenerativeTimeout: getEnvAsDuration("GENERATIVE_TIMEOUT", 5*time.Second),

		ConflictCheckingEnabled: getEnvAsBool("CONFLICT_CHECKING_ENABLED", true),
		SlotStepMinutes:         getEnvAsInt("SLOT_STEP_MINUTES", 20),
		SlotSearchHorizonDays:   getEnvAsInt("SLOT_SEARCH_HORIZON_DAYS", 7),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Concierge AI"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", "Concierge AI"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated environment variable, trimming blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
