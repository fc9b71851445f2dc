package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                 string
	AllowedOrigin        string
	SheetsURL            string
	DatabaseURL          string
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	AnalyticsTTLSeconds  int
	RemoteTimeoutSeconds int
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	ttl, err := strconv.Atoi(getEnv("ANALYTICS_TTL_SECONDS", "60"))
	if err != nil || ttl < 1 {
		ttl = 60
	}
	remoteTimeout, err := strconv.Atoi(getEnv("REMOTE_TIMEOUT_SECONDS", "30"))
	if err != nil || remoteTimeout < 1 {
		remoteTimeout = 30
	}

	// The spreadsheet frontend shipped its endpoint as VITE_GAS_URL, so
	// accept that spelling too for shared .env files.
	sheetsURL := strings.TrimSpace(os.Getenv("GAS_URL"))
	if sheetsURL == "" {
		sheetsURL = strings.TrimSpace(os.Getenv("VITE_GAS_URL"))
	}

	cfg := Config{
		Port:                 getEnv("PORT", "8080"),
		AllowedOrigin:        getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		SheetsURL:            sheetsURL,
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              redisDB,
		AnalyticsTTLSeconds:  ttl,
		RemoteTimeoutSeconds: remoteTimeout,
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
