package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the environment-supplied settings for the marketplace client.
type Config struct {
	APIBaseURL     string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	NATSURL        string
	RequestTimeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		APIBaseURL:     getEnvOrDefault("API_BASE_URL", "http://localhost:8080/api"),
		RedisAddr:      getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:        getEnvIntOrDefault("REDIS_DB", 0),
		NATSURL:        getEnvOrDefault("NATS_URL", "nats://localhost:4222"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 5*time.Second),
	}
}

func getEnvOrDefault(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getEnvIntOrDefault(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDurationOrDefault(key string, def time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return parsed
}
