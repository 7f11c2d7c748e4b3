package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the outreach engine.
type Config struct {
	// Platform holds messaging-platform credentials and session settings
	Platform PlatformConfig `yaml:"platform" json:"platform"`

	// Channels names the source, target and decoy channels
	Channels ChannelsConfig `yaml:"channels" json:"channels"`

	// Proxy holds the optional proxy endpoint handed to the dialer
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Quota holds send ceilings and caps
	Quota QuotaConfig `yaml:"quota" json:"quota"`

	// Delays holds every randomized pacing interval
	Delays DelayConfig `yaml:"delays" json:"delays"`

	// Mimicry controls the decoy-activity simulator
	Mimicry MimicryConfig `yaml:"mimicry" json:"mimicry"`

	// State locates the campaign state file
	State StateConfig `yaml:"state" json:"state"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// PlatformConfig holds platform credentials and the session identity.
type PlatformConfig struct {
	APIID       int    `yaml:"api_id" json:"api_id"`
	APIHash     string `yaml:"api_hash" json:"api_hash"`
	Phone       string `yaml:"phone" json:"phone"`
	SessionName string `yaml:"session_name" json:"session_name"`
}

// ChannelsConfig names the channels the engine works against.
type ChannelsConfig struct {
	// Source is the channel whose discussion threads are scraped
	Source string `yaml:"source" json:"source"`
	// Target is the destination referenced by invitation messages
	Target string `yaml:"target" json:"target"`
	// Decoys are unrelated channels used for human-mimicry activity
	Decoys []string `yaml:"decoys" json:"decoys"`
}

// ProxyConfig holds the optional proxy endpoint and credentials.
type ProxyConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Type     string `yaml:"type" json:"type"`
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// QuotaConfig holds send ceilings and session caps.
type QuotaConfig struct {
	// DailyQuota is the hard ceiling on greet sends per calendar day
	DailyQuota int `yaml:"daily_quota" json:"daily_quota"`
	// ScrapeLimit bounds discoveries per scrape run
	ScrapeLimit int `yaml:"scrape_limit" json:"scrape_limit"`
	// SessionLimit bounds greet sends per outreach session
	SessionLimit int `yaml:"session_limit" json:"session_limit"`
	// DMHourly bounds greet sends per rolling hour
	DMHourly int `yaml:"dm_hourly" json:"dm_hourly"`
	// AutoResetDaily resets invites_today at load when the stored
	// date is stale; disable to require an explicit operator reset
	AutoResetDaily bool `yaml:"auto_reset_daily" json:"auto_reset_daily"`
	// ScrapeWindow is how many recent posts a scrape run inspects
	ScrapeWindow int `yaml:"scrape_window" json:"scrape_window"`
}

// Duration is a time.Duration that marshals to and from the human form
// ("90s", "30m") in YAML.
type Duration time.Duration

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration in the human form.
func (d Duration) String() string { return time.Duration(d).String() }

// UnmarshalYAML accepts either a duration string or integer nanoseconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var ns int64
	if err := value.Decode(&ns); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(ns)
	return nil
}

// MarshalYAML emits the human form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Range is an inclusive interval a randomized delay is drawn from.
type Range struct {
	Min Duration `yaml:"min" json:"min"`
	Max Duration `yaml:"max" json:"max"`
}

// DelayConfig holds every pacing interval. All draws are uniform.
type DelayConfig struct {
	// UserPause separates two greet sends
	UserPause Range `yaml:"user_pause" json:"user_pause"`
	// ScrapeStep is the base delay between scrape steps; replies use
	// 2x the draw, completed posts 10x
	ScrapeStep Range `yaml:"scrape_step" json:"scrape_step"`
	// PreGreetRead simulates reading a candidate's history before a greet
	PreGreetRead Range `yaml:"pre_greet_read" json:"pre_greet_read"`
	// PreInviteRead simulates reading an inbound reply before inviting
	PreInviteRead Range `yaml:"pre_invite_read" json:"pre_invite_read"`
	// InviteTyping is the typing-indicator time before an invitation
	InviteTyping Range `yaml:"invite_typing" json:"invite_typing"`
	// LongPause separates two orchestrator cycles
	LongPause Range `yaml:"long_pause" json:"long_pause"`
	// SevereCoolDown is the fixed suspension after an abuse-flood signal
	SevereCoolDown Duration `yaml:"severe_cool_down" json:"severe_cool_down"`
}

// MimicryConfig controls the decoy-activity simulator.
type MimicryConfig struct {
	// WanderChance is the probability a cycle browses a decoy channel
	WanderChance float64 `yaml:"wander_chance" json:"wander_chance"`
	// InteractChance is the probability browsing escalates to an action
	InteractChance float64 `yaml:"interact_chance" json:"interact_chance"`
}

// StateConfig locates the campaign state file.
type StateConfig struct {
	Path string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with the stock tunables.
func DefaultConfig() *Config {
	return &Config{
		Platform: PlatformConfig{
			SessionName: "session",
		},
		Proxy: ProxyConfig{
			Type: "socks5",
		},
		Quota: QuotaConfig{
			DailyQuota:     15,
			ScrapeLimit:    10,
			SessionLimit:   3,
			DMHourly:       3,
			AutoResetDaily: true,
			ScrapeWindow:   200,
		},
		Delays: DelayConfig{
			UserPause:      Range{Min: Duration(500 * time.Second), Max: Duration(1000 * time.Second)},
			ScrapeStep:     Range{Min: Duration(10 * time.Second), Max: Duration(15 * time.Second)},
			PreGreetRead:   Range{Min: Duration(5 * time.Second), Max: Duration(20 * time.Second)},
			PreInviteRead:  Range{Min: Duration(5 * time.Second), Max: Duration(15 * time.Second)},
			InviteTyping:   Range{Min: Duration(1 * time.Second), Max: Duration(2 * time.Second)},
			LongPause:      Range{Min: Duration(30 * time.Minute), Max: Duration(60 * time.Minute)},
			SevereCoolDown: Duration(2 * time.Hour),
		},
		Mimicry: MimicryConfig{
			WanderChance:   0.4,
			InteractChance: 0.5,
		},
		State: StateConfig{
			Path: "state.json",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the optional
// .env file, then the YAML config file, then environment overrides.
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		// Best-effort default .env, matching local-dev convention
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, err
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML file. An empty path falls
// back to the standard locations; a missing file is not an error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".tgreach.yaml",
		".tgreach.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "tgreach", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "tgreach", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// LoadFromEnv applies environment-variable overrides.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("API_ID"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid API_ID: %w", err)
		}
		c.Platform.APIID = id
	}
	if v := os.Getenv("API_HASH"); v != "" {
		c.Platform.APIHash = strings.TrimSpace(v)
	}
	if v := os.Getenv("PHONE_NUMBER"); v != "" {
		c.Platform.Phone = strings.TrimSpace(v)
	}
	if v := os.Getenv("SESSION_NAME"); v != "" {
		c.Platform.SessionName = v
	}

	if v := os.Getenv("CHANNEL_SOURCE"); v != "" {
		c.Channels.Source = strings.TrimSpace(v)
	}
	if v := os.Getenv("CHANNEL_TARGET"); v != "" {
		c.Channels.Target = strings.TrimSpace(v)
	}
	if v := os.Getenv("HUMAN_CHANNELS"); v != "" {
		c.Channels.Decoys = splitList(v)
	}

	if v := os.Getenv("PROXY_ENABLED"); v != "" {
		c.Proxy.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PROXY_TYPE"); v != "" {
		c.Proxy.Type = v
	}
	if v := os.Getenv("PROXY_HOST"); v != "" {
		c.Proxy.Host = v
	}
	if v := os.Getenv("PROXY_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PROXY_PORT: %w", err)
		}
		c.Proxy.Port = port
	}
	if v := os.Getenv("PROXY_USER"); v != "" {
		c.Proxy.Username = v
	}
	if v := os.Getenv("PROXY_PASS"); v != "" {
		c.Proxy.Password = v
	}

	if err := c.loadQuotaFromEnv(); err != nil {
		return err
	}

	if v := os.Getenv("TGREACH_STATE_PATH"); v != "" {
		c.State.Path = v
	}
	if v := os.Getenv("TGREACH_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("TGREACH_LOG_FILE"); v != "" {
		c.Logging.File = v
	}

	return nil
}

func (c *Config) loadQuotaFromEnv() error {
	for _, q := range []struct {
		env string
		dst *int
	}{
		{"DAILY_QUOTA", &c.Quota.DailyQuota},
		{"SCRAPE_LIMIT", &c.Quota.ScrapeLimit},
		{"SESSION_LIMIT", &c.Quota.SessionLimit},
		{"DM_HOURLY", &c.Quota.DMHourly},
		{"SCRAPE_WINDOW", &c.Quota.ScrapeWindow},
	} {
		v := os.Getenv(q.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", q.env, err)
		}
		*q.dst = n
	}
	return nil
}

// Validate checks if the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []error

	if c.Channels.Source == "" {
		errs = append(errs, errors.New("source channel is required"))
	}
	if c.Channels.Target == "" {
		errs = append(errs, errors.New("target channel is required"))
	}

	if c.Quota.DailyQuota <= 0 {
		errs = append(errs, errors.New("daily quota must be positive"))
	}
	if c.Quota.ScrapeLimit <= 0 {
		errs = append(errs, errors.New("scrape limit must be positive"))
	}
	if c.Quota.SessionLimit <= 0 {
		errs = append(errs, errors.New("session limit must be positive"))
	}
	if c.Quota.DMHourly <= 0 {
		errs = append(errs, errors.New("hourly DM cap must be positive"))
	}
	if c.Quota.ScrapeWindow <= 0 {
		errs = append(errs, errors.New("scrape window must be positive"))
	}

	for _, r := range []struct {
		name string
		r    Range
	}{
		{"user_pause", c.Delays.UserPause},
		{"scrape_step", c.Delays.ScrapeStep},
		{"pre_greet_read", c.Delays.PreGreetRead},
		{"pre_invite_read", c.Delays.PreInviteRead},
		{"invite_typing", c.Delays.InviteTyping},
		{"long_pause", c.Delays.LongPause},
	} {
		if r.r.Min <= 0 || r.r.Max < r.r.Min {
			errs = append(errs, fmt.Errorf("delay range %s must satisfy 0 < min <= max", r.name))
		}
	}
	if c.Delays.SevereCoolDown <= 0 {
		errs = append(errs, errors.New("severe cool-down must be positive"))
	}

	if c.Mimicry.WanderChance < 0 || c.Mimicry.WanderChance > 1 {
		errs = append(errs, errors.New("wander chance must be within [0, 1]"))
	}
	if c.Mimicry.InteractChance < 0 || c.Mimicry.InteractChance > 1 {
		errs = append(errs, errors.New("interact chance must be within [0, 1]"))
	}

	if c.State.Path == "" {
		errs = append(errs, errors.New("state path is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if c.Proxy.Enabled {
		if c.Proxy.Host == "" || c.Proxy.Port <= 0 {
			errs = append(errs, errors.New("proxy host and port are required when proxy is enabled"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save writes the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy safe for display, with secrets blanked.
func (c *Config) Redacted() *Config {
	out := *c
	if out.Platform.APIHash != "" {
		out.Platform.APIHash = "<redacted>"
	}
	if out.Proxy.Password != "" {
		out.Proxy.Password = "<redacted>"
	}
	return &out
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
