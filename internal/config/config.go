package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz Quiz `yaml:"quiz"`
}

// Quiz holds the contest rules and tuning knobs.
type Quiz struct {
	QuestionCount    int    `yaml:"questionCount"`
	PerfectScore     int    `yaml:"perfectScore"`
	TiePenalty       string `yaml:"tiePenalty"`
	PoolVersion      int    `yaml:"poolVersion"`
	UserVersion      int    `yaml:"userVersion"`
	StoreTimeout     string `yaml:"storeTimeout"`
	LeaderboardTTL   string `yaml:"leaderboardTTL"`
	LeaderboardLimit int    `yaml:"leaderboardLimit"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Redis.TTL = "10m"
	cfg.Quiz = Quiz{
		QuestionCount:    5,
		PerfectScore:     5,
		TiePenalty:       "5s",
		PoolVersion:      6,
		UserVersion:      6,
		StoreTimeout:     "3s",
		LeaderboardTTL:   "10s",
		LeaderboardLimit: 50,
	}
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TiePenaltyDuration is the time added when a user accepts a tie penalty.
// A zero or negative value keeps the default.
func (q Quiz) TiePenaltyDuration() time.Duration {
	if d := TTLDuration(q.TiePenalty, 5*time.Second); d > 0 {
		return d
	}
	return 5 * time.Second
}

func (q Quiz) StoreTimeoutDuration() time.Duration {
	return TTLDuration(q.StoreTimeout, 3*time.Second)
}

func (q Quiz) LeaderboardTTLDuration() time.Duration {
	return TTLDuration(q.LeaderboardTTL, 10*time.Second)
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
