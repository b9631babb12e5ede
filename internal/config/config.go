// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const developmentSecret = "dev-secret-do-not-use-in-production"

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig controls persistence. An empty DSN selects the in-memory
// store.
type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig controls token issuance.
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// TryOnConfig controls the session pipeline.
type TryOnConfig struct {
	RequireAPIKey bool
	Live          bool
	ProviderURL   string
	ProviderKey   string
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string
	Format string
}

// HTTPConfig controls cross-cutting request handling.
type HTTPConfig struct {
	CORSAllowedOrigins []string
	RateLimitRPS       int
	RateLimitBurst     int
}

// Config is the full process configuration.
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	Auth        AuthConfig
	TryOn       TryOnConfig
	Logging     LoggingConfig
	HTTP        HTTPConfig
	SeedPath    string
}

// Development reports whether the process runs in the development
// environment.
func (c Config) Development() bool {
	return c.Environment == "development"
}

// Load reads configuration from the environment. A missing JWT_SECRET is
// fatal outside development; in development a fixed insecure secret is
// substituted so local setups work out of the box.
func Load() (Config, error) {
	cfg := Config{
		Environment: getenv("APP_ENV", "development"),
		Server: ServerConfig{
			Host: getenv("HOST", "0.0.0.0"),
			Port: getenvInt("PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:          getenv("DATABASE_DRIVER", "postgres"),
			DSN:             os.Getenv("DATABASE_DSN"),
			MaxOpenConns:    getenvInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getenvInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getenvInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second,
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			TokenTTL:  time.Duration(getenvInt("JWT_EXP_MIN", 1440)) * time.Minute,
		},
		TryOn: TryOnConfig{
			RequireAPIKey: getenvBool("TRYON_REQUIRE_API_KEY", false),
			Live:          getenvBool("FAL_LIVE", false),
			ProviderURL:   getenv("FAL_ENDPOINT", "https://fal.run/fal-ai/tryon"),
			ProviderKey:   os.Getenv("FAL_KEY"),
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "text"),
		},
		HTTP: HTTPConfig{
			CORSAllowedOrigins: getenvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:       getenvInt("RATE_LIMIT_RPS", 50),
			RateLimitBurst:     getenvInt("RATE_LIMIT_BURST", 100),
		},
		SeedPath: os.Getenv("CATALOG_SEED_PATH"),
	}

	if cfg.Auth.JWTSecret == "" {
		if !cfg.Development() {
			return Config{}, fmt.Errorf("JWT_SECRET is required when APP_ENV is %q", cfg.Environment)
		}
		cfg.Auth.JWTSecret = developmentSecret
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvList(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
