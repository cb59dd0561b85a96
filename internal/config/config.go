package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Pixiv     PixivConfig     `yaml:"pixiv"`
	Migurdia  MigurdiaConfig  `yaml:"migurdia"`
	BlackHole BlackHoleConfig `yaml:"blackhole"`
	Download  DownloadConfig  `yaml:"download"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Staging   StagingConfig   `yaml:"staging"`
	LogLevel  string          `yaml:"log_level"`
}

type PixivConfig struct {
	BaseURL      string  `yaml:"base_url"`
	AuthURL      string  `yaml:"auth_url"`
	RefreshToken string  `yaml:"refresh_token"`
	AuthorIDs    []int64 `yaml:"author_ids"`
}

type MigurdiaConfig struct {
	BaseURL  string `yaml:"base_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type BlackHoleConfig struct {
	BaseURL       string `yaml:"base_url"`
	PublicBaseURL string `yaml:"public_base_url"`
}

type DownloadConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BackoffMin  time.Duration `yaml:"backoff_min"`
	BackoffMax  time.Duration `yaml:"backoff_max"`
	Timeout     time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	BatchSize      int `yaml:"batch_size"`
	MaxConnections int `yaml:"max_connections"`
}

type StagingConfig struct {
	BaseDir string `yaml:"base_dir"`
}

func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Pixiv.BaseURL == "" {
		c.Pixiv.BaseURL = "https://app-api.pixiv.net"
	}
	if c.Pixiv.AuthURL == "" {
		c.Pixiv.AuthURL = "https://oauth.secure.pixiv.net/auth/token"
	}
	if c.Migurdia.BaseURL == "" {
		c.Migurdia.BaseURL = "https://migurdia.000webhostapp.com"
	}
	if c.BlackHole.BaseURL == "" {
		c.BlackHole.BaseURL = "https://fileblackhole.000webhostapp.com"
	}
	if c.BlackHole.PublicBaseURL == "" {
		c.BlackHole.PublicBaseURL = "https://fileblackhole.000webhostapp.com/files"
	}
	if c.Download.MaxAttempts == 0 {
		c.Download.MaxAttempts = 6
	}
	if c.Download.BackoffMin == 0 {
		c.Download.BackoffMin = 5 * time.Second
	}
	if c.Download.BackoffMax == 0 {
		c.Download.BackoffMax = 100 * time.Second
	}
	if c.Download.Timeout == 0 {
		c.Download.Timeout = 5 * time.Minute
	}
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = 3
	}
	if c.Pipeline.MaxConnections == 0 {
		c.Pipeline.MaxConnections = 4
	}
	if c.Staging.BaseDir == "" {
		c.Staging.BaseDir = "."
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
