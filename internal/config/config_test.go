package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://snowboards.com/products/2672/equipment-snowboards", cfg.Scraper.ListingURL)
	assert.Equal(t, FetcherHTTP, cfg.Scraper.Fetcher)
	assert.Equal(t, 20, cfg.Scraper.MaxPages)
	assert.NotEmpty(t, cfg.Scraper.UserAgents)
	assert.Equal(t, "data", cfg.Output.DataDir)
	assert.False(t, cfg.Database.Enabled())
	assert.False(t, cfg.Redis.Enabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SCRAPER_MAX_PAGES", "5")
	t.Setenv("SCRAPER_FETCHER", "Browser")
	t.Setenv("SCRAPER_RATE_LIMIT_MIN", "500ms")
	t.Setenv("SCRAPER_RATE_LIMIT_MAX", "1s")
	t.Setenv("SCRAPER_BRANDS", "Burton, Korua ,,Weston")
	t.Setenv("DOWNLOAD_IMAGES", "false")
	t.Setenv("IMAGE_RATE", "2.5")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("SCRAPE_INTERVAL", "6h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Scraper.MaxPages)
	assert.Equal(t, FetcherBrowser, cfg.Scraper.Fetcher)
	assert.Equal(t, 500*time.Millisecond, cfg.Scraper.RateLimitMin)
	assert.Equal(t, []string{"Burton", "Korua", "Weston"}, cfg.Scraper.Brands)
	assert.False(t, cfg.Output.DownloadImages)
	assert.Equal(t, 2.5, cfg.Output.ImageRate)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, 6*time.Hour, cfg.Server.ScrapeInterval)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"relative listing url", func(c *Config) { c.Scraper.ListingURL = "/products" }, "SCRAPER_LISTING_URL"},
		{"relative base url", func(c *Config) { c.Scraper.BaseURL = "snowboards.com" }, "SCRAPER_BASE_URL"},
		{"no pages", func(c *Config) { c.Scraper.MaxPages = 0 }, "SCRAPER_MAX_PAGES"},
		{"unknown fetcher", func(c *Config) { c.Scraper.Fetcher = "curl" }, "SCRAPER_FETCHER"},
		{"inverted rate limit", func(c *Config) { c.Scraper.RateLimitMin = time.Minute }, "SCRAPER_RATE_LIMIT_MIN"},
		{"negative retries", func(c *Config) { c.Scraper.MaxRetries = -1 }, "SCRAPER_MAX_RETRIES"},
		{"no image workers", func(c *Config) { c.Output.ImageConcurrency = 0 }, "IMAGE_CONCURRENCY"},
		{"zero image rate", func(c *Config) { c.Output.ImageRate = 0 }, "IMAGE_RATE"},
		{"short interval", func(c *Config) { c.Server.ScrapeInterval = time.Second }, "SCRAPE_INTERVAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)
			tt.mutate(cfg)

			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "localhost", Port: 5433, User: "app", Password: "secret", DBName: "boards", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5433 user=app password=secret dbname=boards sslmode=disable", db.DSN())
}
