package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries all runtime settings. The admin credential is an email
// plus a bcrypt hash; there is no default password, and with an empty
// hash the admin API stays locked.
type Config struct {
	HTTPAddr      string
	StoreHost     string
	StorePort     int
	PoolSize      int
	StoreTimeout  time.Duration
	JWTSecret     string
	AdminEmail    string
	AdminPassHash string
	FlowMode      string // "confirm" or "optimistic"
	GelfAddr      string
	BrandTitle    string
	LogoPath      string
	PublicBaseURL string
}

// Load reads configuration from the environment, with an optional .env
// file in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr:      getEnv("REG_ADDR", ":8080"),
		StoreHost:     getEnv("REG_DB_HOST", "127.0.0.1"),
		StorePort:     getEnvInt("REG_DB_PORT", 4444),
		PoolSize:      getEnvInt("REG_POOL_SIZE", 3),
		StoreTimeout:  getEnvDuration("REG_DB_TIMEOUT", 10*time.Second),
		JWTSecret:     getEnv("REG_JWT_SECRET", "regio-dev-secret-change-me"),
		AdminEmail:    getEnv("REG_ADMIN_EMAIL", "admin@regio.local"),
		AdminPassHash: getEnv("REG_ADMIN_PASS_HASH", ""),
		FlowMode:      getEnv("REG_FLOW_MODE", "confirm"),
		GelfAddr:      getEnv("REG_GELF_ADDR", ""),
		BrandTitle:    getEnv("REG_BRAND_TITLE", "AIYF"),
		LogoPath:      getEnv("REG_LOGO_PATH", ""),
		PublicBaseURL: getEnv("REG_PUBLIC_URL", ""),
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
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
