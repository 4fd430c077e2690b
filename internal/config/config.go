package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Firecrawl  FirecrawlConfig  `yaml:"firecrawl" mapstructure:"firecrawl"`
	Scrapfly   ScrapflyConfig   `yaml:"scrapfly" mapstructure:"scrapfly"`
	ScraperAPI ScraperAPIConfig `yaml:"scraperapi" mapstructure:"scraperapi"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	OpenRouter OpenRouterConfig `yaml:"openrouter" mapstructure:"openrouter"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Functions  FunctionsConfig  `yaml:"functions" mapstructure:"functions"`
	Chain      ChainConfig      `yaml:"chain" mapstructure:"chain"`
	Extract    ExtractConfig    `yaml:"extract" mapstructure:"extract"`
	Client     ClientConfig     `yaml:"client" mapstructure:"client"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Batch      BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// FirecrawlConfig holds Firecrawl API settings (primary extractor).
type FirecrawlConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScrapflyConfig holds Scrapfly API settings (stealth scraper).
type ScrapflyConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// ScraperAPIConfig holds ScraperAPI settings (premium proxy scraper).
type ScraperAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OCRConfig configures label-image OCR.
type OCRConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
	MistralKey   string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel string `yaml:"mistral_model" mapstructure:"mistral_model"`
	Language     string `yaml:"language" mapstructure:"language"`
	MaxImages    int    `yaml:"max_images" mapstructure:"max_images"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMConfig selects and tunes the scoring backend.
type LLMConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// OpenRouterConfig holds OpenRouter API settings.
type OpenRouterConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Referer string `yaml:"referer" mapstructure:"referer"`
	Title   string `yaml:"title" mapstructure:"title"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key   string `yaml:"key" mapstructure:"key"`
	Model string `yaml:"model" mapstructure:"model"`
}

// FunctionsConfig points the remote client at the hosted endpoints.
type FunctionsConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	AnonKey     string `yaml:"anon_key" mapstructure:"anon_key"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
}

// ChainConfig configures the provider chain.
type ChainConfig struct {
	FirecrawlScrapeTimeoutSecs int     `yaml:"firecrawl_scrape_timeout_secs" mapstructure:"firecrawl_scrape_timeout_secs"`
	FirecrawlCrawlTimeoutSecs  int     `yaml:"firecrawl_crawl_timeout_secs" mapstructure:"firecrawl_crawl_timeout_secs"`
	ScrapflyTimeoutSecs        int     `yaml:"scrapfly_timeout_secs" mapstructure:"scrapfly_timeout_secs"`
	ScraperAPITimeoutSecs      int     `yaml:"scraperapi_timeout_secs" mapstructure:"scraperapi_timeout_secs"`
	MinHTMLBytes               int     `yaml:"min_html_bytes" mapstructure:"min_html_bytes"`
	RequestsPerSecond          float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// ExtractConfig configures the extraction service.
type ExtractConfig struct {
	BlockedDomains []string `yaml:"blocked_domains" mapstructure:"blocked_domains"`
	// SitesFile replaces the embedded site-selector table when set.
	SitesFile  string `yaml:"sites_file" mapstructure:"sites_file"`
	OCREnabled bool   `yaml:"ocr_enabled" mapstructure:"ocr_enabled"`
}

// ClientConfig configures the client pipeline.
type ClientConfig struct {
	RateLimit          int         `yaml:"rate_limit" mapstructure:"rate_limit"`
	RateWindowSecs     int         `yaml:"rate_window_secs" mapstructure:"rate_window_secs"`
	ExtractTimeoutSecs int         `yaml:"extract_timeout_secs" mapstructure:"extract_timeout_secs"`
	ScoreTimeoutSecs   int         `yaml:"score_timeout_secs" mapstructure:"score_timeout_secs"`
	Cache              CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the result cache backend.
type CacheConfig struct {
	Driver   string `yaml:"driver" mapstructure:"driver"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Prefix   string `yaml:"prefix" mapstructure:"prefix"`
	TTLHours int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP endpoints.
type ServerConfig struct {
	Port              int `yaml:"port" mapstructure:"port"`
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Secs converts a *_secs setting to a duration.
func Secs(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LABELSCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.requests_per_minute", 0)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("ocr.provider", "ocrspace")
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.max_images", 8)
	v.SetDefault("ocr.timeout_secs", 20)
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("llm.provider", "openrouter")
	v.SetDefault("llm.timeout_secs", 30)
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("openrouter.model", "openai/gpt-4o-mini")
	v.SetDefault("openrouter.title", "labelscore")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("chain.firecrawl_scrape_timeout_secs", 20)
	v.SetDefault("chain.firecrawl_crawl_timeout_secs", 30)
	v.SetDefault("chain.scrapfly_timeout_secs", 25)
	v.SetDefault("chain.scraperapi_timeout_secs", 30)
	v.SetDefault("chain.min_html_bytes", 500)
	v.SetDefault("chain.requests_per_second", 2.0)
	v.SetDefault("extract.blocked_domains", []string{"costco.com", "samsclub.com", "bjs.com", "instacart.com"})
	v.SetDefault("extract.ocr_enabled", true)
	v.SetDefault("client.rate_limit", 5)
	v.SetDefault("client.rate_window_secs", 60)
	v.SetDefault("client.extract_timeout_secs", 30)
	v.SetDefault("client.score_timeout_secs", 45)
	v.SetDefault("client.cache.driver", "memory")
	v.SetDefault("client.cache.prefix", "labelscore")
	v.SetDefault("client.cache.ttl_hours", 24)

	// Secrets have no defaults; registering them lets AutomaticEnv bind
	// LABELSCORE_* variables during Unmarshal.
	for _, key := range []string{
		"firecrawl.key", "firecrawl.base_url",
		"scrapfly.key", "scrapfly.base_url",
		"scraperapi.key", "scraperapi.base_url",
		"ocr.api_key", "ocr.mistral_api_key",
		"openrouter.key", "openrouter.base_url", "openrouter.referer",
		"anthropic.key",
		"functions.base_url", "functions.anon_key", "functions.access_token",
		"client.cache.dsn",
		"extract.sites_file",
	} {
		v.SetDefault(key, "")
	}

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// HasScrapingProvider reports whether at least one scraping vendor is keyed.
func (c *Config) HasScrapingProvider() bool {
	return c.Firecrawl.Key != "" || c.Scrapfly.Key != "" || c.ScraperAPI.Key != ""
}

// LLMKey returns the API key of the selected scoring backend.
func (c *Config) LLMKey() string {
	if c.LLM.Provider == "anthropic" {
		return c.Anthropic.Key
	}
	return c.OpenRouter.Key
}

// Validate checks the settings a command mode depends on. Modes: serve,
// extract, score, local (client pipeline in-process), remote (client
// pipeline over the hosted functions).
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.RequestsPerMinute < 0 {
			errs = append(errs, "server.requests_per_minute must be >= 0")
		}
		if !c.HasScrapingProvider() {
			errs = append(errs, "one of firecrawl.key, scrapfly.key, scraperapi.key is required")
		}
	case "extract":
		if !c.HasScrapingProvider() {
			errs = append(errs, "one of firecrawl.key, scrapfly.key, scraperapi.key is required")
		}
	case "score":
		if c.LLMKey() == "" {
			errs = append(errs, c.llmKeyName()+" is required")
		}
	case "local":
		if !c.HasScrapingProvider() {
			errs = append(errs, "one of firecrawl.key, scrapfly.key, scraperapi.key is required")
		}
		if c.LLMKey() == "" {
			errs = append(errs, c.llmKeyName()+" is required")
		}
		errs = append(errs, c.clientErrors()...)
	case "remote":
		if c.Functions.BaseURL == "" {
			errs = append(errs, "functions.base_url is required")
		}
		if c.Functions.AnonKey == "" {
			errs = append(errs, "functions.anon_key is required")
		}
		errs = append(errs, c.clientErrors()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.LLM.Provider {
	case "", "openrouter", "anthropic":
	default:
		errs = append(errs, "llm.provider must be openrouter or anthropic")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) llmKeyName() string {
	if c.LLM.Provider == "anthropic" {
		return "anthropic.key"
	}
	return "openrouter.key"
}

func (c *Config) clientErrors() []string {
	var errs []string
	if c.Client.RateLimit < 1 {
		errs = append(errs, "client.rate_limit must be >= 1")
	}
	switch c.Client.Cache.Driver {
	case "", "memory":
	case "sqlite", "postgres":
		if c.Client.Cache.DSN == "" {
			errs = append(errs, "client.cache.dsn is required for driver "+c.Client.Cache.Driver)
		}
	default:
		errs = append(errs, "client.cache.driver must be memory, sqlite or postgres")
	}
	if c.Batch.Concurrency < 1 || c.Batch.Concurrency > 50 {
		errs = append(errs, "batch.concurrency must be between 1 and 50")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
