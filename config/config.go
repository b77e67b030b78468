package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// configPathEnv points at an optional YAML file applied before env overrides.
const configPathEnv = "PRICERANK_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Scraper ScraperConfig `yaml:"scraper"`
	Browser BrowserConfig `yaml:"browser"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 5001
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// ScraperConfig controls how product pages are fetched and parsed.
type ScraperConfig struct {
	// URLTemplate builds the product page URL; "{id}" is replaced by the item id.
	URLTemplate string `yaml:"urlTemplate"` // default: "https://kakaku.com/item/{id}/"

	// UserAgent is sent with every page request.
	UserAgent string `yaml:"userAgent"`

	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration `yaml:"fetchTimeout"` // default: 30s

	// Engine selects the transport: "http" (default) or "browser".
	Engine string `yaml:"engine"`

	// TopN caps the number of ranking rows taken from a page.
	TopN int `yaml:"topN"` // default: 20
}

// BrowserConfig controls the Rod browser used by the "browser" engine.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"noSandbox"` // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browserBin"`

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int `yaml:"maxPages"` // default: 4

	// BlockedResources lists resource types the browser never downloads.
	BlockedResources []string `yaml:"blockedResources"`
}

// StorageConfig controls where snapshots and exports are written.
type StorageConfig struct {
	// DataDir is the local directory for fetched HTML and CSV exports.
	DataDir string `yaml:"dataDir"` // default: "data"

	// S3 mirrors every artifact to a bucket when Bucket is set.
	S3 S3Config `yaml:"s3"`
}

// S3Config describes the optional object-storage mirror.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// Enabled reports whether artifacts should be mirrored to S3.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Load reads configuration from .env, an optional YAML file and environment
// variables, in that order of increasing precedence.
func Load() *Config {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path := os.Getenv(configPathEnv); path != "" {
		if err := loadFile(cfg, path); err != nil {
			slog.Warn("config file ignored, using defaults", "path", path, "error", err)
		}
	}
	cfg.applyEnv()
	return cfg
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5001,
			Mode: "release",
		},
		Scraper: ScraperConfig{
			URLTemplate:  "https://kakaku.com/item/{id}/",
			UserAgent:    "Mozilla/5.0 (Windows NT 10.0; Win64; x64)",
			FetchTimeout: 30 * time.Second,
			Engine:       "http",
			TopN:         20,
		},
		Browser: BrowserConfig{
			Headless:         true,
			MaxPages:         4,
			BlockedResources: []string{"Image", "Stylesheet", "Font", "Media"},
		},
		Storage: StorageConfig{
			DataDir: "data",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Host = envOr("PRICERANK_HOST", c.Server.Host)
	c.Server.Port = envIntOr("PRICERANK_PORT", c.Server.Port)
	c.Server.Mode = envOr("PRICERANK_MODE", c.Server.Mode)

	c.Scraper.URLTemplate = envOr("PRICERANK_URL_TEMPLATE", c.Scraper.URLTemplate)
	c.Scraper.UserAgent = envOr("PRICERANK_USER_AGENT", c.Scraper.UserAgent)
	c.Scraper.FetchTimeout = envDurationOr("PRICERANK_FETCH_TIMEOUT", c.Scraper.FetchTimeout)
	c.Scraper.Engine = strings.ToLower(envOr("PRICERANK_FETCH_ENGINE", c.Scraper.Engine))
	c.Scraper.TopN = envIntOr("PRICERANK_TOP_N", c.Scraper.TopN)

	c.Browser.Headless = envBoolOr("PRICERANK_HEADLESS", c.Browser.Headless)
	c.Browser.NoSandbox = envBoolOr("PRICERANK_NO_SANDBOX", c.Browser.NoSandbox)
	c.Browser.BrowserBin = envOr("PRICERANK_BROWSER_BIN", c.Browser.BrowserBin)
	c.Browser.MaxPages = envIntOr("PRICERANK_MAX_PAGES", c.Browser.MaxPages)
	c.Browser.BlockedResources = envSliceOr("PRICERANK_BLOCKED_RESOURCES", c.Browser.BlockedResources)

	c.Storage.DataDir = envOr("PRICERANK_DATA_DIR", c.Storage.DataDir)
	c.Storage.S3.Bucket = envOr("PRICERANK_S3_BUCKET", c.Storage.S3.Bucket)
	c.Storage.S3.Prefix = envOr("PRICERANK_S3_PREFIX", c.Storage.S3.Prefix)
	c.Storage.S3.Region = envOr("PRICERANK_S3_REGION", c.Storage.S3.Region)
	c.Storage.S3.UsePathStyle = envBoolOr("PRICERANK_S3_PATH_STYLE", c.Storage.S3.UsePathStyle)

	c.Log.Level = envOr("PRICERANK_LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOr("PRICERANK_LOG_FORMAT", c.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
