package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Admin authentication
	AdminJWTSecret    string
	AdminEmail        string
	AdminName         string
	AdminPasswordHash string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration

	CORSAllowedOrigins []string

	// Clinic
	ClinicName        string
	ClinicTimezone    string
	ClinicNotifyEmail string

	// Email delivery
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string // sender identity for every provider
	SendGridFromName  string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Scheduling
	SlotCacheSize        int
	BookingMaxPerContact int
	BookingWindow        time.Duration
	PublicRateLimitRPS   float64
	PublicRateLimitBurst int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		AdminJWTSecret:    getEnv("ADMIN_JWT_SECRET", ""),
		AdminEmail:        strings.ToLower(strings.TrimSpace(getEnv("ADMIN_EMAIL", ""))),
		AdminName:         getEnv("ADMIN_NAME", "Clinic Admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		AccessTokenTTL:    getEnvAsDuration("ACCESS_TOKEN_TTL", 60*time.Minute),
		RefreshTokenTTL:   getEnvAsDuration("REFRESH_TOKEN_TTL", 24*time.Hour),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", nil),

		ClinicName:        getEnv("CLINIC_NAME", "Our Clinic"),
		ClinicTimezone:    getEnv("CLINIC_TIMEZONE", "UTC"),
		ClinicNotifyEmail: getEnv("CLINIC_NOTIFY_EMAIL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Clinic Scheduling"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SlotCacheSize:        getEnvAsInt("SLOT_CACHE_SIZE", 256),
		BookingMaxPerContact: getEnvAsInt("BOOKING_MAX_PER_CONTACT", 5),
		BookingWindow:        getEnvAsDuration("BOOKING_WINDOW", time.Hour),
		PublicRateLimitRPS:   getEnvAsFloat("PUBLIC_RATE_LIMIT_RPS", 2),
		PublicRateLimitBurst: getEnvAsInt("PUBLIC_RATE_LIMIT_BURST", 10),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
