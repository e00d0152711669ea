package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// ColumnLayout maps semantic catalog fields to zero-based column indices in
// the source rows.
type ColumnLayout struct {
	Ref        int
	Name       int
	ClientKey  int
	ClientName int
	Category   int
	Quantity   int
	Price      int
	MinColumns int
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string
	RedisURL           string

	CatalogSource   string
	CatalogCacheTTL time.Duration
	CatalogLayout   ColumnLayout
	IngestTimeout   time.Duration
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CatalogSource:      valueOrDefault(k.String("CATALOG_SOURCE"), "data/productos.xlsx"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IngestTimeout:      parseDuration(k.String("CATALOG_INGEST_TIMEOUT"), "30s"),
		CatalogLayout: ColumnLayout{
			Ref:        intOrDefault(k, "CATALOG_COL_REF", 7),
			Name:       intOrDefault(k, "CATALOG_COL_NAME", 1),
			ClientKey:  intOrDefault(k, "CATALOG_COL_CLIENT_KEY", 2),
			ClientName: intOrDefault(k, "CATALOG_COL_CLIENT_NAME", 3),
			Category:   intOrDefault(k, "CATALOG_COL_CATEGORY", 8),
			Quantity:   intOrDefault(k, "CATALOG_COL_QUANTITY", 9),
			Price:      intOrDefault(k, "CATALOG_COL_PRICE", 10),
			MinColumns: intOrDefault(k, "CATALOG_MIN_COLUMNS", 11),
		},
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func intOrDefault(k *koanf.Koanf, key string, fallback int) int {
	if !k.Exists(key) {
		return fallback
	}
	if strings.TrimSpace(k.String(key)) == "" {
		return fallback
	}
	return k.Int(key)
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
