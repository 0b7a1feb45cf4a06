// Package config defines the termpilot configuration and its defaults.
// Values are loaded through viper from a YAML file and TERMPILOT_* environment
// variables; core components receive the resulting plain structs and never
// read the environment themselves.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete termpilot configuration.
type Config struct {
	Session  SessionConfig  `mapstructure:"session"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Wait     WaitConfig     `mapstructure:"wait"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// SessionConfig controls session registry and per-session behavior.
type SessionConfig struct {
	// MaxSessions is the maximum number of concurrent sessions (default: 10)
	MaxSessions int `mapstructure:"max_sessions"`
	// LockTimeoutMs is the budget for acquiring a session guard (default: 5000)
	LockTimeoutMs int `mapstructure:"lock_timeout_ms"`
	// OutputBufferSize is the size of the PTY output inbox in bytes
	OutputBufferSize int `mapstructure:"output_buffer_size"`
	// TraceBufferEntries is the capacity of the per-session trace ring
	TraceBufferEntries int `mapstructure:"trace_buffer_entries"`
	// ErrorBufferEntries is the capacity of the per-session error ring
	ErrorBufferEntries int `mapstructure:"error_buffer_entries"`
	// RecordingMaxFrames bounds the recording frame list
	RecordingMaxFrames int `mapstructure:"recording_max_frames"`
}

// TerminalConfig controls emulator dimensions and bounds.
type TerminalConfig struct {
	// DefaultCols is the initial terminal width (default: 120)
	DefaultCols int `mapstructure:"default_cols"`
	// DefaultRows is the initial terminal height (default: 40)
	DefaultRows int `mapstructure:"default_rows"`
	// MinCols/MaxCols bound resize requests; out-of-range values are clamped
	MinCols int `mapstructure:"min_cols"`
	MaxCols int `mapstructure:"max_cols"`
	// MinRows/MaxRows bound resize requests; out-of-range values are clamped
	MinRows int `mapstructure:"min_rows"`
	MaxRows int `mapstructure:"max_rows"`
	// ScrollbackLines is the bounded history kept above the viewport
	ScrollbackLines int `mapstructure:"scrollback_lines"`
}

// WaitConfig controls the wait-condition poll loop.
type WaitConfig struct {
	// PollIntervalMs is the fixed tick interval (default: 50)
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// DefaultTimeoutMs is used when the caller omits a timeout (default: 5000)
	DefaultTimeoutMs int `mapstructure:"default_timeout_ms"`
	// StableSamples is the number of identical consecutive screen hashes
	// required before a screen counts as stable (default: 3)
	StableSamples int `mapstructure:"stable_samples"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Enabled turns file logging on or off
	Enabled bool `mapstructure:"enabled"`
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`
	// Dir is the log directory; empty logs to stderr
	Dir string `mapstructure:"dir"`
}

// LockTimeout returns the guard acquisition budget as a time.Duration.
func (c *SessionConfig) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMs) * time.Millisecond
}

// PollInterval returns the wait tick interval as a time.Duration.
func (c *WaitConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// DefaultTimeout returns the fallback wait timeout as a time.Duration.
func (c *WaitConfig) DefaultTimeout() time.Duration {
	return time.Duration(c.DefaultTimeoutMs) * time.Millisecond
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			MaxSessions:        10,
			LockTimeoutMs:      5000,
			OutputBufferSize:   256 * 1024,
			TraceBufferEntries: 500,
			ErrorBufferEntries: 100,
			RecordingMaxFrames: 2000,
		},
		Terminal: TerminalConfig{
			DefaultCols:     120,
			DefaultRows:     40,
			MinCols:         10,
			MaxCols:         500,
			MinRows:         5,
			MaxRows:         200,
			ScrollbackLines: 1000,
		},
		Wait: WaitConfig{
			PollIntervalMs:   50,
			DefaultTimeoutMs: 5000,
			StableSamples:    3,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Dir:     "",
		},
	}
}

// SetDefaults registers default values with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("session.max_sessions", defaults.Session.MaxSessions)
	viper.SetDefault("session.lock_timeout_ms", defaults.Session.LockTimeoutMs)
	viper.SetDefault("session.output_buffer_size", defaults.Session.OutputBufferSize)
	viper.SetDefault("session.trace_buffer_entries", defaults.Session.TraceBufferEntries)
	viper.SetDefault("session.error_buffer_entries", defaults.Session.ErrorBufferEntries)
	viper.SetDefault("session.recording_max_frames", defaults.Session.RecordingMaxFrames)

	viper.SetDefault("terminal.default_cols", defaults.Terminal.DefaultCols)
	viper.SetDefault("terminal.default_rows", defaults.Terminal.DefaultRows)
	viper.SetDefault("terminal.min_cols", defaults.Terminal.MinCols)
	viper.SetDefault("terminal.max_cols", defaults.Terminal.MaxCols)
	viper.SetDefault("terminal.min_rows", defaults.Terminal.MinRows)
	viper.SetDefault("terminal.max_rows", defaults.Terminal.MaxRows)
	viper.SetDefault("terminal.scrollback_lines", defaults.Terminal.ScrollbackLines)

	viper.SetDefault("wait.poll_interval_ms", defaults.Wait.PollIntervalMs)
	viper.SetDefault("wait.default_timeout_ms", defaults.Wait.DefaultTimeoutMs)
	viper.SetDefault("wait.stable_samples", defaults.Wait.StableSamples)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
}

// Load reads the configuration from viper into a Config struct and
// normalizes it. Out-of-range numeric values are clamped, not rejected.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return &cfg, nil
}

// Get returns the current configuration, falling back to defaults if
// unmarshaling fails.
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "termpilot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".termpilot"
	}
	return filepath.Join(home, ".config", "termpilot")
}

// ValidLogLevels returns the accepted log level values.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// IsValidLogLevel checks whether the given level is accepted.
func IsValidLogLevel(level string) bool {
	for _, valid := range ValidLogLevels() {
		if strings.EqualFold(level, valid) {
			return true
		}
	}
	return false
}
