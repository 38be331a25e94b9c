package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	JWTSecret   string
	CORSOrigins []string

	// DBLogQueries logs every SQL statement.
	DBLogQueries bool

	LogLevel  string
	LogFormat string

	// FetchLimit is the size of the prefix each list screen fetches.
	FetchLimit int

	RateLimitRPS   float64
	RateLimitBurst int

	SendGridAPIKey    string
	EmailFrom         string
	EmailFromName     string
	SendGridTemplates string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	SentryDSN string

	ReminderSchedule string
}

// Load reads the configuration from the environment, after loading an
// optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		Environment:  getEnv("APP_ENV", "development"),
		DatabaseURL:  getEnv("DB_URL", ""),
		DBLogQueries: getEnvAsBool("DB_LOG_QUERIES", false),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000"}),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		FetchLimit: getEnvAsInt("FETCH_LIMIT", 100),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 40),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:         getEnv("EMAIL_FROM", "noreply@agencydesk.local"),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "AgencyDesk"),
		SendGridTemplates: getEnv("SENDGRID_TEMPLATES", ""),

		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		ReminderSchedule: getEnv("REMINDER_SCHEDULE", "0 9 * * *"),
	}
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// TwilioEnabled reports whether SMS can be sent.
func (c *Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
