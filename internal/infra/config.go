package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIBaseURL = "http://localhost:8080"

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv     string
	Port       string
	APIBaseURL string
	APITimeout time.Duration
	LogFile    string

	PollInitialDelay time.Duration
	PollInterval     time.Duration
	PollMaxAttempts  int
	PollTimeout      time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	SessionIdle      time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
// Values from .env and .env.local are used when the variable is not already set.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env", ".env.local")

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "3000"),
		APIBaseURL:       getEnv("POST_API_URL", getEnv("REACT_APP_API_URL", defaultAPIBaseURL)),
		APITimeout:       time.Second * time.Duration(getEnvInt("API_TIMEOUT_SECONDS", 30)),
		LogFile:          os.Getenv("LOG_FILE"),
		PollInitialDelay: getEnvDuration("POLL_INITIAL_DELAY_MS", time.Millisecond, 1000),
		PollInterval:     getEnvDuration("POLL_INTERVAL_MS", time.Millisecond, 2000),
		PollMaxAttempts:  getEnvInt("POLL_MAX_ATTEMPTS", 450),
		PollTimeout:      getEnvDuration("POLL_TIMEOUT_SECONDS", time.Second, 900),
		HTTPReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT_SECONDS", time.Second, 15),
		HTTPWriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT_SECONDS", time.Second, 30),
		HTTPIdleTimeout:  getEnvDuration("HTTP_IDLE_TIMEOUT_SECONDS", time.Second, 60),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		SessionIdle:      getEnvDuration("SESSION_IDLE_MINUTES", time.Minute, 30),
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	parsed, err := url.Parse(cfg.APIBaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, fmt.Errorf("POST_API_URL must be an absolute http(s) URL, got %q", cfg.APIBaseURL)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.PollInitialDelay < 0 {
		cfg.PollInitialDelay = 0
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, unit time.Duration, fallback int) time.Duration {
	return unit * time.Duration(getEnvInt(key, fallback))
}
