// Package config loads the server configuration from YAML with environment
// overrides on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hnskin/internal/cache"
	"hnskin/internal/hn"
	"hnskin/internal/preview"
	"hnskin/internal/theme"
)

// DefaultPath is used when neither --config nor HNSKIN_CONFIG is set
const DefaultPath = "config/hnskin.yaml"

// Config is the server configuration
type Config struct {
	Listen    string `yaml:"listen"`
	LogLevel  string `yaml:"log_level"`
	RedisURL  string `yaml:"redis_url"`
	Theme     string `yaml:"theme"`
	StaticDir string `yaml:"static_dir"`

	Upstream Upstream `yaml:"upstream"`
	Hover    Hover    `yaml:"hover"`
	Popover  Popover  `yaml:"popover"`
	Cache    Cache    `yaml:"cache"`
}

// Upstream configures profile fetches
type Upstream struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimit    int           `yaml:"rate_limit"`
	RateWindow   time.Duration `yaml:"rate_window"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
}

// Hover configures hover intent timing
type Hover struct {
	ShowDelay        time.Duration `yaml:"show_delay"`
	HideDelay        time.Duration `yaml:"hide_delay"`
	CancelSuperseded bool          `yaml:"cancel_superseded"`
}

// Popover configures popover geometry in CSS pixels
type Popover struct {
	Width           float64 `yaml:"width"`
	EstimatedHeight float64 `yaml:"estimated_height"`
	Gap             float64 `yaml:"gap"`
	Padding         float64 `yaml:"padding"`
}

// Cache configures the profile cache
type Cache struct {
	TTL      time.Duration `yaml:"ttl"`
	Capacity int           `yaml:"capacity"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	upstream := hn.DefaultConfig()
	caches := cache.DefaultCacheConfig()
	margins := preview.DefaultMargins()
	return Config{
		Listen:    ":8080",
		LogLevel:  "info",
		Theme:     theme.DefaultName,
		StaticDir: "static",
		Upstream: Upstream{
			BaseURL:      upstream.BaseURL,
			Timeout:      upstream.Timeout,
			RateLimit:    caches.RateLimit,
			RateWindow:   caches.RateLimitWindow,
			MaxBodyBytes: upstream.MaxBodyBytes,
		},
		Hover: Hover{
			ShowDelay: preview.DefaultShowDelay,
			HideDelay: preview.DefaultHideDelay,
		},
		Popover: Popover{
			Width:           preview.DefaultWidth,
			EstimatedHeight: preview.DefaultEstimatedHeight,
			Gap:             margins.Gap,
			Padding:         margins.Padding,
		},
		Cache: Cache{
			TTL:      caches.ProfileTTL,
			Capacity: caches.ProfileCapacity,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("config file not found, using defaults", "path", path)
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes YAML over the defaults and validates the result.
// Unknown keys are an error.
func Parse(data []byte, source string) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PORT, LOG_LEVEL and REDIS_URL
func (cfg *Config) ApplyEnv(getenv func(string) string) error {
	if port := getenv("PORT"); port != "" {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("PORT %q is not a number", port)
		}
		cfg.Listen = ":" + port
	}
	if level := getenv("LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if redisURL := getenv("REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}
	return nil
}

// Validate returns every problem found, empty when the config is usable
func (cfg Config) Validate() []string {
	var errs []string

	if strings.TrimSpace(cfg.Listen) == "" {
		errs = append(errs, "listen is required")
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log_level %q must be one of debug,info,warn,error", cfg.LogLevel))
	}
	if cfg.RedisURL != "" {
		if _, err := url.Parse(cfg.RedisURL); err != nil {
			errs = append(errs, fmt.Sprintf("redis_url: %v", err))
		}
	}

	if u, err := url.Parse(cfg.Upstream.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, "upstream.base_url must be an absolute http(s) URL")
	}
	if cfg.Upstream.Timeout <= 0 {
		errs = append(errs, "upstream.timeout must be positive")
	}
	if cfg.Upstream.RateLimit < 0 {
		errs = append(errs, "upstream.rate_limit must not be negative")
	}
	if cfg.Upstream.RateLimit > 0 && cfg.Upstream.RateWindow <= 0 {
		errs = append(errs, "upstream.rate_window must be positive when rate_limit is set")
	}
	if cfg.Upstream.MaxBodyBytes <= 0 {
		errs = append(errs, "upstream.max_body_bytes must be positive")
	}

	if cfg.Hover.ShowDelay <= 0 {
		errs = append(errs, "hover.show_delay must be positive")
	}
	if cfg.Hover.HideDelay <= 0 {
		errs = append(errs, "hover.hide_delay must be positive")
	}

	if cfg.Popover.Width <= 0 {
		errs = append(errs, "popover.width must be positive")
	}
	if cfg.Popover.EstimatedHeight <= 0 {
		errs = append(errs, "popover.estimated_height must be positive")
	}
	if cfg.Popover.Gap < 0 || cfg.Popover.Padding < 0 {
		errs = append(errs, "popover.gap and popover.padding must not be negative")
	}

	if cfg.Cache.TTL <= 0 {
		errs = append(errs, "cache.ttl must be positive")
	}
	if cfg.Cache.Capacity <= 0 {
		errs = append(errs, "cache.capacity must be positive")
	}

	return errs
}

// SiteHost is the host of the upstream site, used to recognize absolute
// profile links.
func (cfg Config) SiteHost() string {
	u, err := url.Parse(cfg.Upstream.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// Margins returns the popover margins as the preview engine wants them
func (cfg Config) Margins() preview.Margins {
	return preview.Margins{Gap: cfg.Popover.Gap, Padding: cfg.Popover.Padding}
}
