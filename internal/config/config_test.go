package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	var cfg Config
	Normalize(&cfg)
	cfg.Backend.BaseURL = "http://localhost:8080"
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	Normalize(&cfg)

	require.Equal(t, 38471, cfg.App.Port)
	require.Equal(t, 60, cfg.Backend.TimeoutSeconds)
	require.Equal(t, 3, cfg.Retry.MaxRounds)
	require.Equal(t, 300, cfg.Refresh.Seconds)
	require.Equal(t, []string{"country", "city", "linkedin_url", "work_authorization"}, cfg.Profile.RequiredFields)
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Validate(cfg))

	bad := cfg
	bad.App.Port = 0
	require.ErrorContains(t, Validate(bad), "app.port")

	bad = cfg
	bad.Backend.BaseURL = "not-a-url"
	require.ErrorContains(t, Validate(bad), "base_url")

	bad = cfg
	bad.Prompts.Rules = []PromptRule{{Category: "veteran", Any: []string{"veteran"}, Type: "select"}}
	require.ErrorContains(t, Validate(bad), "options")

	bad.Prompts.Rules[0].Type = "dropdown"
	require.ErrorContains(t, Validate(bad), "type")

	cfg.Prompts.Rules = []PromptRule{{Category: "veteran", Any: []string{"veteran"}, Type: "select", Options: []string{"Yes", "No"}}}
	require.NoError(t, Validate(cfg))
}

func TestSaveAtomicRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")

	cfg := validConfig()
	cfg.Retry.MaxRounds = 5
	require.NoError(t, SaveAtomic(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5, got.Retry.MaxRounds)
	require.Equal(t, "http://localhost:8080", got.Backend.BaseURL)

	// second save keeps a .bak of the previous file
	cfg.Retry.MaxRounds = 2
	require.NoError(t, SaveAtomic(path, cfg))
	prev, err := Load(path + ".bak")
	require.NoError(t, err)
	require.Equal(t, 5, prev.Retry.MaxRounds)
}

func TestSaveAtomicRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	var cfg Config // no base_url
	Normalize(&cfg)
	require.Error(t, SaveAtomic(path, cfg))
}

func TestEnsureUserConfigGeneratesMinimal(t *testing.T) {
	dir := t.TempDir()
	userPath, err := EnsureUserConfig(dir, filepath.Join(dir, "missing-default.yml"))
	require.NoError(t, err)

	cfg, err := Load(userPath)
	require.NoError(t, err)
	require.Equal(t, "http://localhost:8080", cfg.Backend.BaseURL)

	// second call reuses the existing file
	again, err := EnsureUserConfig(dir, filepath.Join(dir, "missing-default.yml"))
	require.NoError(t, err)
	require.Equal(t, userPath, again)
}
