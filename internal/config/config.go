// Package config loads server settings from an optional YAML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const EnvConfigPath = "CORRGUESSR_CONFIG"

type Config struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	RedisURL  string `yaml:"redis_url"`
	RedisPass string `yaml:"redis_password"`
	RedisDB   int    `yaml:"redis_db"`

	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	// GuessRateLimit is the number of guesses a player may submit per minute.
	GuessRateLimit int `yaml:"guess_rate_limit"`

	// StaleGameAge is how long an idle game stays cached in memory.
	StaleGameAge time.Duration `yaml:"stale_game_age"`

	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		Port:           "8080",
		Env:            "development",
		RedisURL:       "localhost:6379",
		RedisDB:        0,
		SessionTTL:     24 * time.Hour,
		GuessRateLimit: 60,
		StaleGameAge:   10 * time.Minute,
		LogLevel:       "info",
	}
}

// Load applies, in order: defaults, the YAML file named by
// CORRGUESSR_CONFIG (if set), environment variables.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Env == "production" && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl must be positive, got %v", c.SessionTTL)
	}
	if c.StaleGameAge <= 0 {
		return fmt.Errorf("stale_game_age must be positive, got %v", c.StaleGameAge)
	}
	if c.GuessRateLimit < 1 {
		return fmt.Errorf("guess_rate_limit must be at least 1, got %d", c.GuessRateLimit)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.LogLevel != "" && !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace)", c.LogLevel)
	}

	return nil
}

// IsProduction reports whether the server runs in release mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPass = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		c.RedisDB = db
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWTSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		c.SessionTTL = ttl
	}
	if v := os.Getenv("GUESS_RATE_LIMIT"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid GUESS_RATE_LIMIT %q: %w", v, err)
		}
		c.GuessRateLimit = limit
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}
