// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"` // per HTTP request
}

type PollConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxDuration time.Duration `yaml:"max_duration"` // 0 polls until a terminal status
	TickTimeout time.Duration `yaml:"tick_timeout"`
}

type UploadConfig struct {
	MaxBytes    int64 `yaml:"max_bytes"`
	ValidatePDF bool  `yaml:"validate_pdf"`
}

type WebConfig struct {
	Port int    `yaml:"port"`
	Lang string `yaml:"lang"` // en | id
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type Config struct {
	API     APIConfig     `yaml:"api"`
	Poll    PollConfig    `yaml:"poll"`
	Upload  UploadConfig  `yaml:"upload"`
	Web     WebConfig     `yaml:"web"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML file at path. A missing file is not an error:
// the defaults describe a backend on localhost:8080.
func LoadConfig(path string, dev bool) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(b, cfg); err != nil {
			return nil, err
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}
	if v := os.Getenv("SUMMARIZER_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		API:     APIConfig{BaseURL: "http://localhost:8080", Timeout: 30 * time.Second},
		Poll:    PollConfig{Interval: 2 * time.Second, MaxDuration: 10 * time.Minute, TickTimeout: 10 * time.Second},
		Upload:  UploadConfig{MaxBytes: 20 << 20, ValidatePDF: true},
		Web:     WebConfig{Port: 3000, Lang: "en"},
		Metrics: MetricsConfig{Enabled: true},
		Log:     LogConfig{Level: "info", Format: "json"},
	}
}

// Parse decodes YAML on top of cfg.
func Parse(b []byte, cfg *Config) error {
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	// defaults
	if c.API.Timeout <= 0 {
		c.API.Timeout = 30 * time.Second
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = 2 * time.Second
	}
	if c.Poll.TickTimeout <= 0 {
		c.Poll.TickTimeout = 10 * time.Second
	}
	if c.Poll.MaxDuration < 0 {
		c.Poll.MaxDuration = 0
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 20 << 20
	}
	if c.Web.Port <= 0 {
		c.Web.Port = 3000
	}
	if c.Web.Lang == "" {
		c.Web.Lang = "en"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	// Minimal validation
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute url", c.API.BaseURL)
	}
	return nil
}
