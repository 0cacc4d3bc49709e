package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration for the attribution service.
// File values (if a config file is given) are applied first, environment
// variables override them, so local and containerized runs share one path.
type Config struct {
	HTTPPort int `yaml:"http_port"`

	// RedisAddr enables the Redis rate-context cache when non-empty; otherwise
	// the in-process cache is used.
	RedisAddr string `yaml:"redis_addr"`

	AttributionWindow time.Duration `yaml:"attribution_window"`
	RateCacheTTL      time.Duration `yaml:"rate_cache_ttl"`

	ClickWorkers    int `yaml:"click_workers"`
	ClickQueueSize  int `yaml:"click_queue_size"`
	TrackingCodeLen int `yaml:"tracking_code_len"`
}

func Default() Config {
	return Config{
		HTTPPort:          8080,
		AttributionWindow: 30 * 24 * time.Hour,
		RateCacheTTL:      time.Minute,
		ClickWorkers:      4,
		ClickQueueSize:    1024,
		TrackingCodeLen:   8,
	}
}

// Load builds the config from defaults, an optional yaml file and env
// overrides, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid HTTP_PORT %q: %w", v, err)
		}
		c.HTTPPort = p
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := os.Getenv("ATTRIBUTION_WINDOW_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid ATTRIBUTION_WINDOW_DAYS %q: %w", v, err)
		}
		c.AttributionWindow = time.Duration(days) * 24 * time.Hour
	}
	if v := os.Getenv("CLICK_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid CLICK_WORKERS %q: %w", v, err)
		}
		c.ClickWorkers = n
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http_port out of range: %d", c.HTTPPort)
	}
	if c.AttributionWindow <= 0 {
		return fmt.Errorf("attribution_window must be positive")
	}
	if c.ClickWorkers <= 0 {
		c.ClickWorkers = 1
	}
	if c.ClickQueueSize <= 0 {
		c.ClickQueueSize = 1024
	}
	if c.TrackingCodeLen < 4 {
		c.TrackingCodeLen = 8
	}
	return nil
}
