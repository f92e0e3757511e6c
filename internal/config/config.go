package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	CORSOrigins    []string `yaml:"cors_origins"`
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`
	RateLimitBurst int      `yaml:"rate_limit_burst"`
}

// ContentConfig points at the remote content service
type ContentConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollingConfig holds the refresh cadence
type PollingConfig struct {
	LiveInterval time.Duration `yaml:"live_interval"`
	IdleInterval time.Duration `yaml:"idle_interval"`
}

// RedisConfig holds the optional Redis mirror configuration. An empty URL disables it.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Stream string `yaml:"stream"`
}

// Config holds all application configuration
type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Content  ContentConfig `yaml:"content"`
	Polling  PollingConfig `yaml:"polling"`
	Redis    RedisConfig   `yaml:"redis"`
	LogLevel string        `yaml:"log_level"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			CORSOrigins:    []string{"*"},
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		Content: ContentConfig{
			BaseURL: "http://localhost",
			Timeout: 10 * time.Second,
		},
		Polling: PollingConfig{
			LiveInterval: 30 * time.Second,
			IdleInterval: 60 * time.Second,
		},
		Redis: RedisConfig{
			Stream: "weekend.updates",
		},
		LogLevel: "INFO",
	}
}

// LoadConfig reads filename when it exists, then applies environment overrides.
// A missing file is not an error; configuration then comes from the environment alone.
func LoadConfig(filename string) (*Config, error) {
	cfg := Defaults()

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides cfg with any environment variable that is set
func applyEnv(cfg *Config) error {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("CONTENT_API_URL"); v != "" {
		cfg.Content.BaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("UPDATES_STREAM"); v != "" {
		cfg.Redis.Stream = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"CONTENT_API_TIMEOUT", &cfg.Content.Timeout},
		{"POLL_LIVE_INTERVAL", &cfg.Polling.LiveInterval},
		{"POLL_IDLE_INTERVAL", &cfg.Polling.IdleInterval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", v, err)
		}
		cfg.Server.RateLimitRPS = rps
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RATE_LIMIT_BURST %q: %w", v, err)
		}
		cfg.Server.RateLimitBurst = burst
	}

	return nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Content.BaseURL) == "" {
		return errors.New("content base URL is required")
	}
	if c.Polling.LiveInterval <= 0 {
		return fmt.Errorf("live interval must be positive, got %s", c.Polling.LiveInterval)
	}
	if c.Polling.IdleInterval <= 0 {
		return fmt.Errorf("idle interval must be positive, got %s", c.Polling.IdleInterval)
	}
	if c.Content.Timeout <= 0 {
		return fmt.Errorf("content timeout must be positive, got %s", c.Content.Timeout)
	}
	return nil
}

// RedisEnabled reports whether the Redis mirror should be started
func (c *Config) RedisEnabled() bool {
	return c.Redis.URL != ""
}

// SlogLevel maps LogLevel to a slog level, defaulting to Info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
