// Package config loads server configuration from a .env file or the process
// environment.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	ShareCode ShareCodeConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type ShareCodeConfig struct {
	// TTL is how long an issued share code stays valid.
	TTL time.Duration
	// SweepInterval is how often expired code rows are cleaned up. Cleanup
	// only; lookups never depend on it.
	SweepInterval time.Duration
}

type LoggerConfig struct {
	Level string
}

// Load reads configuration, preferring a .env file when one exists and
// falling back to environment variables (useful for Docker/K8s).
func Load() *Config {
	for _, envFile := range []string{".env", "../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	readTimeout, _ := strconv.Atoi(getEnv("SERVER_READ_TIMEOUT", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("SERVER_WRITE_TIMEOUT", "30"))
	codeTTL, _ := strconv.Atoi(getEnv("SHARE_CODE_TTL_MINUTES", "30"))
	sweepInterval, _ := strconv.Atoi(getEnv("SHARE_CODE_SWEEP_MINUTES", "10"))

	return &Config{
		Server: ServerConfig{
			Addr:         getEnv("ADDR", ":8080"),
			ReadTimeout:  time.Duration(readTimeout) * time.Second,
			WriteTimeout: time.Duration(writeTimeout) * time.Second,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/tabsplit.db"),
		},
		ShareCode: ShareCodeConfig{
			TTL:           time.Duration(codeTTL) * time.Minute,
			SweepInterval: time.Duration(sweepInterval) * time.Minute,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
