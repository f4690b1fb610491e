package config

import (
	"os"
	"strconv"
	"time"
	"wc3stats/internal/constants"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	DBPath            string
	ServerPort        string
	LogLevel          string
	MatchmakingAPIURL string
	SyncEnabled       bool
	SyncInterval      time.Duration
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:            getEnv("DB_PATH", "wc3stats.db"),
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		MatchmakingAPIURL: getEnv("MATCHMAKING_API_URL", ""),
		SyncEnabled:       getEnvBool("SYNC_ENABLED", false),
		SyncInterval:      constants.SyncInterval,
	}

	if cfg.SyncEnabled && cfg.MatchmakingAPIURL == "" {
		logger.Warn().Msg("SYNC_ENABLED is set but MATCHMAKING_API_URL is empty, disabling sync")
		cfg.SyncEnabled = false
	}

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("sync_enabled", cfg.SyncEnabled).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
