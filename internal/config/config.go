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

	// ScheduleCacheTTL bounds how long a provider's weekly schedule is
	// served from Redis before re-reading Postgres.
	ScheduleCacheTTL time.Duration

	// API edge protection. A zero RateLimitPerSecond disables rate
	// limiting; empty CORSAllowedOrigins disables CORS headers.
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	// Scheduling policy knobs. The defaults mirror long-standing
	// front-desk practice; none of them carry stricter semantics than
	// "this is what operators tuned them to".
	SameDayBuffer     time.Duration // minimum lead time for same-day slots
	MinPrimarySlots   int           // below this, adjacent days are searched
	SlotStepMinutes   int           // slot grid granularity
	DateDecayFactor   float64       // confidence multiplier for far-off suggested dates
	DateDecayAfter    int           // days of date distance before decay applies
	CandidateLimit    int           // max stale clients evaluated per provider
	MinDaysSinceVisit int           // a client is "overdue" after this many days

	// Capacity worker settings.
	CapacityInterval   time.Duration
	CapacityWindowDays int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ScheduleCacheTTL: getEnvAsDuration("SCHEDULE_CACHE_TTL", 5*time.Minute),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 0),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		SameDayBuffer:     getEnvAsDuration("SAME_DAY_BUFFER", 3*time.Hour),
		MinPrimarySlots:   getEnvAsInt("MIN_PRIMARY_SLOTS", 3),
		SlotStepMinutes:   getEnvAsInt("SLOT_STEP_MINUTES", 30),
		DateDecayFactor:   getEnvAsFloat("DATE_DECAY_FACTOR", 0.7),
		DateDecayAfter:    getEnvAsInt("DATE_DECAY_AFTER_DAYS", 7),
		CandidateLimit:    getEnvAsInt("CANDIDATE_LIMIT", 20),
		MinDaysSinceVisit: getEnvAsInt("MIN_DAYS_SINCE_VISIT", 21),

		CapacityInterval:   getEnvAsDuration("CAPACITY_INTERVAL", time.Hour),
		CapacityWindowDays: getEnvAsInt("CAPACITY_WINDOW_DAYS", 7),
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

// getEnvAsSlice retrieves a comma-separated environment variable as a
// slice, trimming whitespace around each entry.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
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
