package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr         string
	BackendBaseURL   string
	APIPrefix        string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RequestTimeout   time.Duration
	TransferTimeout  time.Duration
	RetryMaxAttempts int
	RetryBaseDelay   time.Duration
	RetryFactor      float64
	CookieMaxAge     time.Duration
	CookieSecure     bool
	SessionTTL       time.Duration
}

func Load() Config {
	return Config{
		HTTPAddr:         getenv("HTTP_ADDR", ":8080"),
		BackendBaseURL:   getenv("BACKEND_BASE_URL", "http://127.0.0.1:5000"),
		APIPrefix:        getenv("API_PREFIX", "/api"),
		RedisAddr:        getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:    getenv("REDIS_PASSWORD", ""),
		RedisDB:          getenvInt("REDIS_DB", 0),
		RequestTimeout:   getenvDuration("REQUEST_TIMEOUT", 30*time.Second),
		TransferTimeout:  getenvDuration("TRANSFER_TIMEOUT", 2*time.Minute),
		RetryMaxAttempts: getenvInt("RETRY_MAX_ATTEMPTS", 3),
		RetryBaseDelay:   getenvDuration("RETRY_BASE_DELAY", time.Second),
		RetryFactor:      getenvFloat("RETRY_FACTOR", 2),
		CookieMaxAge:     getenvDuration("COOKIE_MAX_AGE", 7*24*time.Hour),
		CookieSecure:     getenv("COOKIE_SECURE", "false") == "true",
		SessionTTL:       getenvDuration("SESSION_TTL", 30*24*time.Hour),
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
