package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.RequestsPerMinute)
	assert.Equal(t, 4, cfg.Batch.Concurrency)
	assert.Equal(t, "ocrspace", cfg.OCR.Provider)
	assert.Equal(t, 8, cfg.OCR.MaxImages)
	assert.Equal(t, "openrouter", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.OpenRouter.Model)
	assert.Equal(t, 20, cfg.Chain.FirecrawlScrapeTimeoutSecs)
	assert.Equal(t, 30, cfg.Chain.ScraperAPITimeoutSecs)
	assert.Equal(t, 500, cfg.Chain.MinHTMLBytes)
	assert.Equal(t, []string{"costco.com", "samsclub.com", "bjs.com", "instacart.com"}, cfg.Extract.BlockedDomains)
	assert.True(t, cfg.Extract.OCREnabled)
	assert.Equal(t, 5, cfg.Client.RateLimit)
	assert.Equal(t, 60, cfg.Client.RateWindowSecs)
	assert.Equal(t, "memory", cfg.Client.Cache.Driver)
	assert.Equal(t, "labelscore", cfg.Client.Cache.Prefix)
	assert.Equal(t, 24, cfg.Client.Cache.TTLHours)
	assert.Empty(t, cfg.Firecrawl.Key)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
  format: console
server:
  port: 9090
  requests_per_minute: 120
client:
  cache:
    driver: sqlite
    dsn: /tmp/labelscore.db
extract:
  blocked_domains:
    - example.com
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Server.RequestsPerMinute)
	assert.Equal(t, "sqlite", cfg.Client.Cache.Driver)
	assert.Equal(t, "/tmp/labelscore.db", cfg.Client.Cache.DSN)
	assert.Equal(t, []string{"example.com"}, cfg.Extract.BlockedDomains)
	// Defaults still apply for unset values
	assert.Equal(t, 24, cfg.Client.Cache.TTLHours)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
client:
  cache:
    driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("LABELSCORE_CLIENT_CACHE_DRIVER", "postgres")
	t.Setenv("LABELSCORE_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Client.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvSecrets(t *testing.T) {
	chdirTemp(t)

	t.Setenv("LABELSCORE_FIRECRAWL_KEY", "fc-key")
	t.Setenv("LABELSCORE_OPENROUTER_KEY", "or-key")
	t.Setenv("LABELSCORE_FUNCTIONS_ANON_KEY", "anon")
	t.Setenv("LABELSCORE_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "fc-key", cfg.Firecrawl.Key)
	assert.Equal(t, "or-key", cfg.OpenRouter.Key)
	assert.Equal(t, "anon", cfg.Functions.AnonKey)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Server.Port = 8080
	cfg.LLM.Provider = "openrouter"
	cfg.Client.RateLimit = 5
	cfg.Client.Cache.Driver = "memory"
	cfg.Batch.Concurrency = 4
	return cfg
}

func TestValidateServe(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "one of firecrawl.key, scrapfly.key, scraperapi.key is required")

	cfg.ScraperAPI.Key = "sa-key"
	assert.NoError(t, cfg.Validate("serve"), "the LLM key is optional for serve")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Firecrawl.Key = "fc"
	cfg.Server.Port = 0
	cfg.Server.RequestsPerMinute = -1

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
	assert.Contains(t, err.Error(), "server.requests_per_minute must be >= 0")
}

func TestValidateScore(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openrouter.key is required")

	cfg.LLM.Provider = "anthropic"
	err = cfg.Validate("score")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	cfg.Anthropic.Key = "sk-ant"
	assert.NoError(t, cfg.Validate("score"))
}

func TestValidateLocal(t *testing.T) {
	cfg := validDefaults()
	cfg.Firecrawl.Key = "fc"
	cfg.OpenRouter.Key = "or"
	assert.NoError(t, cfg.Validate("local"))

	cfg.Client.Cache.Driver = "sqlite"
	err := cfg.Validate("local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.cache.dsn is required for driver sqlite")

	cfg.Client.Cache.Driver = "redis"
	err = cfg.Validate("local")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.cache.driver must be memory, sqlite or postgres")
}

func TestValidateRemote(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "functions.base_url is required")
	assert.Contains(t, err.Error(), "functions.anon_key is required")

	cfg.Functions.BaseURL = "https://project.example.co"
	cfg.Functions.AnonKey = "anon"
	assert.NoError(t, cfg.Validate("remote"), "remote mode needs no vendor keys")
}

func TestValidateClientBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Functions.BaseURL = "https://project.example.co"
	cfg.Functions.AnonKey = "anon"

	cfg.Client.RateLimit = 0
	cfg.Batch.Concurrency = 51
	err := cfg.Validate("remote")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client.rate_limit must be >= 1")
	assert.Contains(t, err.Error(), "batch.concurrency must be between 1 and 50")
}

func TestValidateUnknownLLMProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.ScraperAPI.Key = "sa"
	cfg.LLM.Provider = "gemini"
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm.provider must be openrouter or anthropic")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestSecs(t *testing.T) {
	assert.Equal(t, 30*time.Second, Secs(30))
	assert.Zero(t, Secs(0))
}
