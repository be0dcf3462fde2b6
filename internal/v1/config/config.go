package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration
type Config struct {
	// Required variables
	Port string

	// Optional variables with defaults
	GoEnv           string
	LogLevel        string
	DevelopmentMode bool

	// Auth0 host authentication
	Auth0Domain   string
	Auth0Audience string
	SkipAuth      bool

	AllowedOrigins string

	// Redis (optional; join locks and rate-limit store)
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string

	// Quiz repository selection
	QuizServiceURL   string // HTTP quiz service; empty means in-memory fixtures
	QuizFixturesPath string // JSON file seeding the in-memory repository

	// Public base URL encoded into join QR codes
	PublicJoinURL string

	// Game tuning
	PlayerGracePeriod time.Duration
	HostGracePeriod   time.Duration
	HostGraceWarning  time.Duration
	JoinLockTTL       time.Duration
	PinMaxAttempts    int
	ReaperInterval    time.Duration
	TimerTick         time.Duration

	// Rate Limits
	RateLimitAPIPublic string
	RateLimitWsIP      string
}

// ValidateEnv validates all required environment variables and returns a Config object
// Returns an error if any required variable is missing or invalid
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errors []string

	// Required: PORT (valid port number)
	cfg.Port = os.Getenv("PORT")
	if cfg.Port == "" {
		errors = append(errors, "PORT is required")
	} else {
		port, err := strconv.Atoi(cfg.Port)
		if err != nil || port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
		}
	}

	// Conditional: REDIS_ADDR (required if REDIS_ENABLED=true)
	cfg.RedisEnabled = os.Getenv("REDIS_ENABLED") == "true"
	if cfg.RedisEnabled {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
		if cfg.RedisAddr == "" {
			// Default to localhost:6379 if not specified
			cfg.RedisAddr = "localhost:6379"
			slog.Warn("REDIS_ADDR not set, using default", "addr", cfg.RedisAddr)
		} else if !isValidHostPort(cfg.RedisAddr) {
			errors = append(errors, fmt.Sprintf("REDIS_ADDR must be in format 'host:port' (got '%s')", cfg.RedisAddr))
		}
		cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	}

	// Optional: GO_ENV (defaults to "production")
	cfg.GoEnv = os.Getenv("GO_ENV")
	if cfg.GoEnv == "" {
		cfg.GoEnv = "production"
	}

	// Optional: LOG_LEVEL (defaults to "info")
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Auth (not validated here; main decides whether auth is mandatory)
	cfg.Auth0Domain = os.Getenv("AUTH0_DOMAIN")
	cfg.Auth0Audience = os.Getenv("AUTH0_AUDIENCE")
	cfg.SkipAuth = os.Getenv("SKIP_AUTH") == "true"
	cfg.DevelopmentMode = os.Getenv("DEVELOPMENT_MODE") == "true"
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")

	// Quiz repository selection
	cfg.QuizServiceURL = os.Getenv("QUIZ_SERVICE_URL")
	cfg.QuizFixturesPath = os.Getenv("QUIZ_FIXTURES_PATH")
	cfg.PublicJoinURL = getEnvOrDefault("PUBLIC_JOIN_URL", "http://localhost:3000/join")

	// Game tuning (all durations configured in milliseconds)
	cfg.PlayerGracePeriod = getEnvDurationMs("PLAYER_GRACE_PERIOD_MS", 120_000, &errors)
	cfg.HostGracePeriod = getEnvDurationMs("HOST_GRACE_PERIOD_MS", 300_000, &errors)
	cfg.HostGraceWarning = getEnvDurationMs("HOST_GRACE_WARNING_MS", 60_000, &errors)
	cfg.JoinLockTTL = getEnvDurationMs("JOIN_LOCK_TTL_MS", 10_000, &errors)
	cfg.ReaperInterval = getEnvDurationMs("REAPER_INTERVAL_MS", 10_000, &errors)
	cfg.TimerTick = getEnvDurationMs("TIMER_TICK_MS", 1_000, &errors)
	cfg.PinMaxAttempts = getEnvInt("PIN_MAX_ATTEMPTS", 50, &errors)

	if cfg.PinMaxAttempts < 1 {
		errors = append(errors, fmt.Sprintf("PIN_MAX_ATTEMPTS must be at least 1 (got %d)", cfg.PinMaxAttempts))
	}

	// Rate Limits (Defaults: M = Minute, H = Hour)
	cfg.RateLimitAPIPublic = getEnvOrDefault("RATE_LIMIT_API_PUBLIC", "100-M")
	cfg.RateLimitWsIP = getEnvOrDefault("RATE_LIMIT_WS_IP", "20-M")

	// If there are validation errors, return them
	if len(errors) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	// Log validated configuration (with secrets redacted)
	logValidatedConfig(cfg)

	return cfg, nil
}

// isValidHostPort checks if a string is in the format "host:port"
func isValidHostPort(addr string) bool {
	parts := strings.Split(addr, ":")
	if len(parts) != 2 {
		return false
	}

	// Validate port is a number
	port, err := strconv.Atoi(parts[1])
	if err != nil || port < 1 || port > 65535 {
		return false
	}

	// Validate host is not empty
	if parts[0] == "" {
		return false
	}

	return true
}

// logValidatedConfig logs the validated configuration with secrets redacted
func logValidatedConfig(cfg *Config) {
	slog.Info("✅ Environment configuration validated successfully")
	slog.Info("Configuration",
		"port", cfg.Port,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"development_mode", cfg.DevelopmentMode,
		"redis_enabled", cfg.RedisEnabled,
		"redis_addr", cfg.RedisAddr,
		"redis_password", redactSecret(cfg.RedisPassword),
		"quiz_service_url", cfg.QuizServiceURL,
		"quiz_fixtures_path", cfg.QuizFixturesPath,
		"player_grace_period", cfg.PlayerGracePeriod,
		"host_grace_period", cfg.HostGracePeriod,
		"join_lock_ttl", cfg.JoinLockTTL,
		"pin_max_attempts", cfg.PinMaxAttempts,
		"reaper_interval", cfg.ReaperInterval,
		"timer_tick", cfg.TimerTick,
		"rate_limit_ws_ip", cfg.RateLimitWsIP,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvDurationMs reads a millisecond-valued variable; invalid or non-positive
// values are collected into errs
func getEnvDurationMs(key string, defaultMs int64, errs *[]string) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return time.Duration(defaultMs) * time.Millisecond
	}
	ms, err := strconv.ParseInt(value, 10, 64)
	if err != nil || ms <= 0 {
		*errs = append(*errs, fmt.Sprintf("%s must be a positive integer of milliseconds (got '%s')", key, value))
		return time.Duration(defaultMs) * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}

// getEnvInt reads an integer-valued variable; invalid values are collected into errs
func getEnvInt(key string, defaultValue int, errs *[]string) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s must be an integer (got '%s')", key, value))
		return defaultValue
	}
	return n
}

// redactSecret redacts a secret by showing only the first 8 characters
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
