package common

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              int
	DatabaseDriver    string
	DatabaseURL       string
	DatabaseLogLevel  string
	JWTSecret         string
	TokenTTL          time.Duration
	CORSOrigins       []string
	SeedInviteCodes   int
	SeedAdminAccounts int
	GinMode           string
}

// LoadConfig reads an optional .env file and then the process environment.
// Flags applied afterwards by the CLI take precedence over both.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not read .env file: %v", err)
	}

	cfg := Config{
		DatabaseDriver:   getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:      getEnv("DATABASE_URL", "forum.db"),
		DatabaseLogLevel: getEnv("DB_LOG_LEVEL", "warn"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		GinMode:          os.Getenv("GIN_MODE"),
	}

	var err error
	if cfg.Port, err = getEnvInt("PORT", 8080); err != nil {
		return Config{}, err
	}
	if cfg.SeedInviteCodes, err = getEnvInt("SEED_INVITE_CODES", 10000); err != nil {
		return Config{}, err
	}
	if cfg.SeedAdminAccounts, err = getEnvInt("SEED_ADMIN_ACCOUNTS", 10); err != nil {
		return Config{}, err
	}

	ttl := getEnv("TOKEN_TTL", "24h")
	if cfg.TokenTTL, err = time.ParseDuration(ttl); err != nil {
		return Config{}, fmt.Errorf("invalid TOKEN_TTL %q: %w", ttl, err)
	}

	cfg.CORSOrigins = splitList(getEnv("CORS_ORIGIN", "*"))

	return cfg, nil
}

// Validate checks the settings a running server cannot do without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable not set")
	}
	if c.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL must be positive")
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (use sqlite or postgres)", c.DatabaseDriver)
	}
	if c.DatabaseURL == "" {
		return errors.New("database URL required (use --db or DATABASE_URL env)")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s env variable: %q", key, v)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
