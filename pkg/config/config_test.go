package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Quota.DailyQuota != 15 {
		t.Errorf("Expected default daily quota to be 15, got %d", cfg.Quota.DailyQuota)
	}
	if cfg.Quota.ScrapeLimit != 10 {
		t.Errorf("Expected default scrape limit to be 10, got %d", cfg.Quota.ScrapeLimit)
	}
	if cfg.Quota.DMHourly != 3 {
		t.Errorf("Expected default hourly DM cap to be 3, got %d", cfg.Quota.DMHourly)
	}
	if !cfg.Quota.AutoResetDaily {
		t.Error("Expected auto reset daily to default to true")
	}
	if cfg.Delays.SevereCoolDown.Std() != 2*time.Hour {
		t.Errorf("Expected severe cool-down of 2h, got %s", cfg.Delays.SevereCoolDown)
	}
	if cfg.State.Path != "state.json" {
		t.Errorf("Expected default state path state.json, got %s", cfg.State.Path)
	}
}

func TestLoadFromEnv(t *testing.T) {
	envs := map[string]string{
		"API_ID":         "12345",
		"API_HASH":       "abcdef",
		"CHANNEL_SOURCE": "@source",
		"CHANNEL_TARGET": "https://t.me/target",
		"HUMAN_CHANNELS": "@alpha, @beta ,,@gamma",
		"DAILY_QUOTA":    "7",
		"DM_HOURLY":      "2",
		"PROXY_ENABLED":  "true",
		"PROXY_HOST":     "127.0.0.1",
		"PROXY_PORT":     "1080",
	}
	for k, v := range envs {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range envs {
			os.Unsetenv(k)
		}
	}()

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if cfg.Platform.APIID != 12345 {
		t.Errorf("Expected API id 12345, got %d", cfg.Platform.APIID)
	}
	if cfg.Channels.Source != "@source" {
		t.Errorf("Expected source @source, got %s", cfg.Channels.Source)
	}
	if len(cfg.Channels.Decoys) != 3 || cfg.Channels.Decoys[2] != "@gamma" {
		t.Errorf("Expected 3 decoy channels ending in @gamma, got %v", cfg.Channels.Decoys)
	}
	if cfg.Quota.DailyQuota != 7 {
		t.Errorf("Expected daily quota 7, got %d", cfg.Quota.DailyQuota)
	}
	if !cfg.Proxy.Enabled || cfg.Proxy.Port != 1080 {
		t.Errorf("Expected proxy enabled on port 1080, got %+v", cfg.Proxy)
	}
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	os.Setenv("DAILY_QUOTA", "lots")
	defer os.Unsetenv("DAILY_QUOTA")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric DAILY_QUOTA")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
channels:
  source: "@src"
  target: "@dst"
quota:
  daily_quota: 5
  scrape_limit: 4
delays:
  user_pause:
    min: 1m
    max: 2m
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if cfg.Channels.Source != "@src" {
		t.Errorf("Expected source @src, got %s", cfg.Channels.Source)
	}
	if cfg.Quota.DailyQuota != 5 {
		t.Errorf("Expected daily quota 5, got %d", cfg.Quota.DailyQuota)
	}
	if cfg.Delays.UserPause.Min.Std() != time.Minute {
		t.Errorf("Expected user pause min 1m, got %s", cfg.Delays.UserPause.Min)
	}
	// Untouched defaults survive the merge
	if cfg.Quota.DMHourly != 3 {
		t.Errorf("Expected hourly cap to keep its default, got %d", cfg.Quota.DMHourly)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing source channel",
			mutate:  func(c *Config) { c.Channels.Source = "" },
			wantErr: true,
		},
		{
			name:    "zero daily quota",
			mutate:  func(c *Config) { c.Quota.DailyQuota = 0 },
			wantErr: true,
		},
		{
			name:    "inverted delay range",
			mutate:  func(c *Config) { c.Delays.LongPause = Range{Min: Duration(time.Hour), Max: Duration(time.Minute)} },
			wantErr: true,
		},
		{
			name:    "wander chance out of range",
			mutate:  func(c *Config) { c.Mimicry.WanderChance = 1.5 },
			wantErr: true,
		},
		{
			name:    "proxy enabled without host",
			mutate:  func(c *Config) { c.Proxy.Enabled = true },
			wantErr: true,
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Channels.Source = "@src"
			cfg.Channels.Target = "@dst"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Platform.APIHash = "secret"
	cfg.Proxy.Password = "hunter2"

	red := cfg.Redacted()
	if red.Platform.APIHash != "<redacted>" {
		t.Errorf("Expected API hash to be redacted, got %s", red.Platform.APIHash)
	}
	if red.Proxy.Password != "<redacted>" {
		t.Errorf("Expected proxy password to be redacted, got %s", red.Proxy.Password)
	}
	if cfg.Platform.APIHash != "secret" {
		t.Error("Redacted must not mutate the original config")
	}
}
