// Package config loads, validates and persists the engine's YAML
// configuration.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// PromptRule maps a category of employer questions to a prompt type and a
// canned option set. Rules are matched against the lowercased question text;
// backend-supplied options always take precedence over rules.
type PromptRule struct {
	Category string   `yaml:"category"`
	Any      []string `yaml:"any"`
	Type     string   `yaml:"type"` // select | radio | text
	Options  []string `yaml:"options"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Backend struct {
		BaseURL        string  `yaml:"base_url"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
		Burst          int     `yaml:"burst"`
	} `yaml:"backend"`

	Retry struct {
		MaxRounds int `yaml:"max_rounds"`
	} `yaml:"retry"`

	Refresh struct {
		Seconds int `yaml:"seconds"`
	} `yaml:"refresh"`

	Profile struct {
		RequiredFields []string `yaml:"required_fields"`
	} `yaml:"profile"`

	Prompts struct {
		Rules []PromptRule `yaml:"rules"`
	} `yaml:"prompts"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	Normalize(&cfg)
	return cfg, nil
}

// Normalize fills defaults so a sparse user config still runs.
func Normalize(cfg *Config) {
	if cfg.App.Port == 0 {
		cfg.App.Port = 38471
	}
	if cfg.Backend.TimeoutSeconds <= 0 {
		cfg.Backend.TimeoutSeconds = 60
	}
	if cfg.Backend.RequestsPerSec <= 0 {
		cfg.Backend.RequestsPerSec = 2
	}
	if cfg.Backend.Burst <= 0 {
		cfg.Backend.Burst = 4
	}
	if cfg.Retry.MaxRounds <= 0 {
		cfg.Retry.MaxRounds = 3
	}
	if cfg.Refresh.Seconds <= 0 {
		cfg.Refresh.Seconds = 300
	}
	if len(cfg.Profile.RequiredFields) == 0 {
		cfg.Profile.RequiredFields = []string{
			"country", "city", "linkedin_url", "work_authorization",
		}
	}
}
