package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppPort string

	RedisAddr     string
	RedisPassword string

	DatabaseDSN string

	// How long a session lives. Drives both the logical deadline stored in
	// the record and the Redis key TTL; they must never diverge.
	SessionDuration time.Duration

	UserRateLimit int
	IPRateLimit   int
	RateWindow    time.Duration

	TickInterval time.Duration

	MaxHintsPerSession int
}

func Load() Config {

	cfg := Config{

		AppPort: getenv("APP_PORT", "8080"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		DatabaseDSN: os.Getenv("DATABASE_DSN"),

		SessionDuration: time.Duration(getenvInt("SESSION_DURATION_SECONDS", 3600)) * time.Second,

		UserRateLimit: getenvInt("RATE_LIMIT_PER_USER", 100),
		IPRateLimit:   getenvInt("RATE_LIMIT_PER_IP", 200),
		RateWindow:    time.Duration(getenvInt("RATE_WINDOW_SECONDS", 60)) * time.Second,

		TickInterval: time.Duration(getenvInt("TICK_INTERVAL_MS", 1000)) * time.Millisecond,

		MaxHintsPerSession: getenvInt("MAX_HINTS_PER_SESSION", 3),
	}

	return cfg

}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
