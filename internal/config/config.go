package config

import (
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string
	DatabaseDSN string
	Env         string
	BackupDir   string
	UploadDir   string
	LogPath     string
	LogLevel    string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by caller) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "pos.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.BackupDir = getEnv("BACKUP_DIR", "storage/backups")
	cfg.UploadDir = getEnv("UPLOAD_DIR", "storage/uploads")
	cfg.LogPath = getEnv("LOG_PATH", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseBool reads an env var as bool with default.
func ParseBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Warnf("invalid boolean for %s: %s", key, v)
			return def
		}
		return b
	}
	return def
}
