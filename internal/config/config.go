// Package config handles global configuration loading using viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/stackparse/pkg/dissect"
)

// ErrConfigInvalid wraps every validation failure.
var ErrConfigInvalid = errors.New("stackparse: invalid configuration")

// GlobalConfig represents the top-level configuration.
// Maps to the `stackparse:` root key in YAML.
type GlobalConfig struct {
	Log     LogConfig     `mapstructure:"log"`
	Dissect DissectConfig `mapstructure:"dissect"`
	Capture CaptureConfig `mapstructure:"capture"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// ─── Dissection ───

// DissectConfig controls how each packet is walked.
type DissectConfig struct {
	First  dissect.Protocol `mapstructure:"first"`  // ethernet / vlan / ipv4 / gre / udp / sctp
	Mode   dissect.Mode     `mapstructure:"mode"`   // full / headers
	Filter string           `mapstructure:"filter"` // "udp and host 10.0.0.1"
}

// ─── Live Capture ───

// CaptureConfig configures the AF_PACKET source.
type CaptureConfig struct {
	Interface    string        `mapstructure:"interface"`
	SnapLen      int           `mapstructure:"snap_len"`
	BufferSizeMB int           `mapstructure:"buffer_size_mb"`
	PollTimeout  time.Duration `mapstructure:"poll_timeout"`
	FanoutID     uint16        `mapstructure:"fanout_id"` // 0 = no fanout
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level"`  // debug / info / warn / error
	Format  string           `mapstructure:"format"` // json / text
	Outputs LogOutputsConfig `mapstructure:"outputs"`
}

// LogOutputsConfig contains structured log output destinations.
type LogOutputsConfig struct {
	File FileOutputConfig `mapstructure:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Path     string         `mapstructure:"path"`
	Rotation RotationConfig `mapstructure:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups"`
	Compress   bool `mapstructure:"compress"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `stackparse: ...`.
type configRoot struct {
	Stackparse GlobalConfig `mapstructure:"stackparse"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to environment overrides.
// Env vars use the STACKPARSE_ prefix (e.g., STACKPARSE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// The `stackparse.` key prefix maps to `STACKPARSE_` through the replacer
	// (key "stackparse.log.level" → env "STACKPARSE_LOG_LEVEL").
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	hooks := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(&root, hooks); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal config: %v", ErrConfigInvalid, err)
	}
	cfg := root.Stackparse

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration.
// All keys use the "stackparse." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	// Log defaults
	v.SetDefault("stackparse.log.level", "info")
	v.SetDefault("stackparse.log.format", "text")
	v.SetDefault("stackparse.log.outputs.file.enabled", false)
	v.SetDefault("stackparse.log.outputs.file.path", "/var/log/stackparse/stackparse.log")
	v.SetDefault("stackparse.log.outputs.file.rotation.max_size_mb", 100)
	v.SetDefault("stackparse.log.outputs.file.rotation.max_age_days", 30)
	v.SetDefault("stackparse.log.outputs.file.rotation.max_backups", 5)
	v.SetDefault("stackparse.log.outputs.file.rotation.compress", true)

	// Dissect defaults
	v.SetDefault("stackparse.dissect.first", "ethernet")
	v.SetDefault("stackparse.dissect.mode", "full")
	v.SetDefault("stackparse.dissect.filter", "")

	// Capture defaults
	v.SetDefault("stackparse.capture.interface", "")
	v.SetDefault("stackparse.capture.snap_len", 65535)
	v.SetDefault("stackparse.capture.buffer_size_mb", 8)
	v.SetDefault("stackparse.capture.poll_timeout", "100ms")
	v.SetDefault("stackparse.capture.fanout_id", 0)

	// Metrics defaults
	v.SetDefault("stackparse.metrics.enabled", false)
	v.SetDefault("stackparse.metrics.listen", ":9091")
	v.SetDefault("stackparse.metrics.path", "/metrics")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log validation ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("%w: log level %q (must be debug/info/warn/error)", ErrConfigInvalid, cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("%w: log format %q (must be json/text)", ErrConfigInvalid, cfg.Log.Format)
	}
	if cfg.Log.Outputs.File.Enabled && cfg.Log.Outputs.File.Path == "" {
		return fmt.Errorf("%w: log.outputs.file.path is required when file output is enabled", ErrConfigInvalid)
	}

	// ── Dissect validation ──
	if cfg.Dissect.First == dissect.End || !cfg.Dissect.First.Valid() {
		return fmt.Errorf("%w: dissect.first must name a layer, got %s", ErrConfigInvalid, cfg.Dissect.First)
	}

	// ── Capture validation ──
	if cfg.Capture.SnapLen <= 0 {
		return fmt.Errorf("%w: capture.snap_len must be positive, got %d", ErrConfigInvalid, cfg.Capture.SnapLen)
	}
	if cfg.Capture.BufferSizeMB <= 0 {
		return fmt.Errorf("%w: capture.buffer_size_mb must be positive, got %d", ErrConfigInvalid, cfg.Capture.BufferSizeMB)
	}
	if cfg.Capture.PollTimeout <= 0 {
		cfg.Capture.PollTimeout = 100 * time.Millisecond
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("%w: metrics.listen is required when metrics are enabled", ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	return nil
}
