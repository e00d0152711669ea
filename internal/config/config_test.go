package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pedidos/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"APP_ENV":             "",
		"PORT":                "",
		"CATALOG_SOURCE":      "",
		"CATALOG_COL_REF":     "",
		"CATALOG_MIN_COLUMNS": "",
	})
	require.NoError(t, err)
	require.Equal(t, "development", cfg.AppEnv)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "data/productos.xlsx", cfg.CatalogSource)
	require.Equal(t, 7, cfg.CatalogLayout.Ref)
	require.Equal(t, 11, cfg.CatalogLayout.MinColumns)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                 "9090",
		"CATALOG_SOURCE":       "https://example.com/catalog.csv",
		"CATALOG_COL_REF":      "0",
		"CATALOG_COL_PRICE":    "5",
		"CATALOG_MIN_COLUMNS":  "6",
		"CATALOG_CACHE_TTL":    "90s",
		"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, "https://example.com/catalog.csv", cfg.CatalogSource)
	require.Equal(t, 0, cfg.CatalogLayout.Ref)
	require.Equal(t, 5, cfg.CatalogLayout.Price)
	require.Equal(t, 6, cfg.CatalogLayout.MinColumns)
	require.Equal(t, "1m30s", cfg.CatalogCacheTTL.String())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
