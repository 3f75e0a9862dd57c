package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the overlay service.
type Config struct {
	// HTTP bind settings
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool

	// Logging
	LogLevel string
	LogFile  string

	// Storage settings
	StoreBackend string // "file" or "sqlite"
	DataDir      string
	SQLitePath   string

	// Journal settings
	JournalEnabled    bool
	JournalDir        string
	JournalBufferSize int
	JournalMaxSizeMB  int
}

// Load reads configuration from environment variables and optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &Config{
		BindAddr:          getEnvOrDefault("OVERLAY_BIND_ADDR", ""),
		PortCandidates:    getEnvListOrDefault("OVERLAY_PORT_CANDIDATES", []string{"127.0.0.1:8750", "127.0.0.1:8751", "127.0.0.1:8752"}),
		PortAutoFallback:  getEnvBoolOrDefault("OVERLAY_PORT_AUTO_FALLBACK", true),
		LogLevel:          getEnvOrDefault("OVERLAY_LOG_LEVEL", "info"),
		LogFile:           getEnvOrDefault("OVERLAY_LOG_FILE", ""),
		StoreBackend:      getEnvOrDefault("OVERLAY_STORE_BACKEND", "file"),
		DataDir:           getEnvOrDefault("OVERLAY_DATA_DIR", "./overlay_data"),
		SQLitePath:        getEnvOrDefault("OVERLAY_SQLITE_PATH", "./overlay_data/overlay.db"),
		JournalEnabled:    getEnvBoolOrDefault("OVERLAY_JOURNAL_ENABLED", true),
		JournalDir:        getEnvOrDefault("OVERLAY_JOURNAL_DIR", "./overlay_data/journal"),
		JournalBufferSize: getEnvIntOrDefault("OVERLAY_JOURNAL_BUFFER_SIZE", 1000),
		JournalMaxSizeMB:  getEnvIntOrDefault("OVERLAY_JOURNAL_MAX_SIZE_MB", 50),
	}

	return cfg, nil
}

// SlogLevel maps the configured level string onto a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
