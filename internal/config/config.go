package config

import (
	"os"
	"strconv"
)

type Config struct {
	// User is the local user id stamped on change events and repairs.
	User string
	// SQLitePath is the local store; used unless DatabaseURL is set.
	SQLitePath  string
	DatabaseURL string
	// Redis - optional stub-listing cache, disabled if empty.
	RedisURL string
	// Meilisearch - optional search index, disabled if URL empty.
	MeiliURL       string
	MeiliMasterKey string
	// ArchiveDir holds the per-document git archives of pruned versions.
	ArchiveDir string
	// BatchSize bounds one bulk write-back during an audit sweep.
	BatchSize int
	LogLevel  string
	LogJSON   bool
}

func Load() Config {
	return Config{
		User:           getenv("NOTARIUM_USER", "local"),
		SQLitePath:     getenv("NOTARIUM_DB", "./data/notarium.db"),
		DatabaseURL:    getenv("NOTARIUM_DATABASE_URL", ""),
		RedisURL:       getenv("NOTARIUM_REDIS_URL", ""),
		MeiliURL:       getenv("NOTARIUM_MEILI_URL", ""),
		MeiliMasterKey: getenv("NOTARIUM_MEILI_MASTER_KEY", ""),
		ArchiveDir:     getenv("NOTARIUM_ARCHIVE_DIR", "./data/archive"),
		BatchSize:      getenvInt("NOTARIUM_AUDIT_BATCH", 100),
		LogLevel:       getenv("NOTARIUM_LOG_LEVEL", "info"),
		LogJSON:        getenv("NOTARIUM_LOG_FORMAT", "console") == "json",
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
