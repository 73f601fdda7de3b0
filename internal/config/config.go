package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            string `yaml:"port"`
		ReadTimeout     string `yaml:"read_timeout"`
		WriteTimeout    string `yaml:"write_timeout"`
		ShutdownTimeout string `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Storage struct {
		// Backend is one of memory, redis, postgres.
		Backend     string `yaml:"backend"`
		Timeout     string `yaml:"timeout"`
		ReadRetries int    `yaml:"read_retries"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Questions struct {
		File string `yaml:"file"`
		TTL  string `yaml:"ttl"`
	} `yaml:"questions"`
	Leaderboard struct {
		Limit           int    `yaml:"limit"`
		CacheTTL        string `yaml:"cache_ttl"`
		RefreshInterval string `yaml:"refresh_interval"`
	} `yaml:"leaderboard"`
	Auth struct {
		Secret       string `yaml:"secret"`
		Issuer       string `yaml:"issuer"`
		Audience     string `yaml:"audience"`
		ReauthWindow string `yaml:"reauth_window"`
	} `yaml:"auth"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
// A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("LOG_MODE"); v != "" {
		cfg.Log.Mode = v
	}
	if v := os.Getenv("STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := firstEnv("POSTGRES_URL", "DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("AUTH_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "development"
	}
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		switch {
		case cfg.Postgres.URL != "":
			cfg.Storage.Backend = "postgres"
		case cfg.Redis.Addr != "":
			cfg.Storage.Backend = "redis"
		default:
			cfg.Storage.Backend = "memory"
		}
	}
	if cfg.Storage.ReadRetries <= 0 {
		cfg.Storage.ReadRetries = 3
	}
	if cfg.Leaderboard.Limit <= 0 {
		cfg.Leaderboard.Limit = 20
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
