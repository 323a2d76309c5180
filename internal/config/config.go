package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/redis/go-redis/v9"
)

// Config is the glue for all configuration sections.
type Config struct {
	Common    Common    `toml:"common"`
	Database  Database  `toml:"database"`
	Auth      Auth      `toml:"auth"`
	Redis     Redis     `toml:"redis"`
	OpenAI    OpenAI    `toml:"openai"`
	RateLimit RateLimit `toml:"rate_limit"`
}

// Common is the data required for all services.
type Common struct {
	Address string `toml:"address"`
	Debug   bool   `toml:"debug"`
}

// Database is the data required to establish a PostgreSQL connection.
type Database struct {
	DSN string `toml:"dsn"`
}

type Auth struct {
	Secret          string `toml:"secret"`
	SessionLifetime string `toml:"session_lifetime"`
}

// Lifetime parses the session lifetime, defaulting to 30 days.
func (a Auth) Lifetime() time.Duration {
	d, err := time.ParseDuration(a.SessionLifetime)
	if err != nil || d <= 0 {
		return 30 * 24 * time.Hour
	}
	return d
}

type Redis struct {
	Enabled  bool   `toml:"enabled"`
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"DB"`
}

func (c Redis) GenOptions() *redis.Options {
	return &redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	}
}

type OpenAI struct {
	Enabled bool   `toml:"enabled"`
	APIKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

// RateLimit bounds flag submissions per user.
type RateLimit struct {
	SubmitMax    int    `toml:"submit_max"`
	SubmitWindow string `toml:"submit_window"`
}

func (r RateLimit) Max() int {
	if r.SubmitMax <= 0 {
		return 30
	}
	return r.SubmitMax
}

func (r RateLimit) Window() time.Duration {
	d, err := time.ParseDuration(r.SubmitWindow)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't read config file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("couldn't parse config file: %w", err)
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret must be set")
	}
	return &cfg, nil
}
