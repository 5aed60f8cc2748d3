package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// TablePath points to a TOML/YAML/JSON locale table. Empty selects the
	// embedded table.
	TablePath    string
	Root         string
	PathTemplate string
	Anchor       string
	Backup       bool
	AtomicWrite  bool
	// DatabaseURL enables the patch journal when set.
	DatabaseURL string
	WorkerCount int
	LogLevel    string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using environment variables")
	}

	return &Config{
		TablePath:    getEnv("PATCH_TABLE_FILE", ""),
		Root:         getEnv("PATCH_ROOT", "."),
		PathTemplate: getEnv("PATCH_PATH_TEMPLATE", "src/lib/i18n/translations/{locale}.ts"),
		Anchor:       getEnv("PATCH_ANCHOR_FIELD", ""),
		Backup:       getEnvBool("PATCH_BACKUP", false),
		AtomicWrite:  getEnvBool("PATCH_ATOMIC_WRITE", false),
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		WorkerCount:  getEnvInt("WORKER_COUNT", 4),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
