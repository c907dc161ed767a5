// Package config defines and loads the slotwire configuration.
//
// Configuration is read from a TOML or YAML file, chosen by extension,
// then overridden by SLOTWIRE_* environment variables.
package config

import (
	"fmt"
	"strings"
)

// Config is the complete slotwire configuration.
type Config struct {
	Log      LogConfig      `toml:"log" yaml:"log"`
	Registry RegistryConfig `toml:"registry" yaml:"registry"`
	Stream   StreamConfig   `toml:"stream" yaml:"stream"`
	Watch    WatchConfig    `toml:"watch" yaml:"watch"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Script   ScriptConfig   `toml:"script" yaml:"script"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format" yaml:"format"`
}

// RegistryConfig tunes the connection registry.
type RegistryConfig struct {
	// CompactMin is the minimum number of dead connections before a list
	// is compacted.
	CompactMin int `toml:"compact_min" yaml:"compact_min"`
	// CompactRatio is the dead-per-live ratio that triggers compaction.
	CompactRatio float64 `toml:"compact_ratio" yaml:"compact_ratio"`
}

// StreamConfig configures event streams.
type StreamConfig struct {
	// Capacity bounds each stream buffer; 0 is unbounded.
	Capacity int `toml:"capacity" yaml:"capacity"`
}

// WatchConfig configures the file watcher.
type WatchConfig struct {
	Paths        []string `toml:"paths" yaml:"paths"`
	Recursive    bool     `toml:"recursive" yaml:"recursive"`
	IgnoreHidden bool     `toml:"ignore_hidden" yaml:"ignore_hidden"`
	Ignore       []string `toml:"ignore" yaml:"ignore"`
	// DebounceMS coalesces changes to a path within this many milliseconds.
	DebounceMS int `toml:"debounce_ms" yaml:"debounce_ms"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Addr    string `toml:"addr" yaml:"addr"`
}

// ScriptConfig configures the optional Lua receiver.
type ScriptConfig struct {
	// Path is the Lua file to load. Empty disables scripting.
	Path string `toml:"path" yaml:"path"`
	// Function is the global Lua function connected to file events.
	Function string `toml:"function" yaml:"function"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Registry: RegistryConfig{
			CompactMin:   4,
			CompactRatio: 1,
		},
		Stream: StreamConfig{
			Capacity: 1024,
		},
		Watch: WatchConfig{
			Paths:        []string{"."},
			IgnoreHidden: true,
			DebounceMS:   50,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9090",
		},
		Script: ScriptConfig{
			Function: "on_change",
		},
	}
}

// Validate checks the configuration for values that cannot work.
func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Registry.CompactMin < 1 {
		return fmt.Errorf("%w: registry.compact_min must be positive", ErrInvalidConfig)
	}
	if c.Registry.CompactRatio < 0 {
		return fmt.Errorf("%w: registry.compact_ratio must not be negative", ErrInvalidConfig)
	}
	if c.Stream.Capacity < 0 {
		return fmt.Errorf("%w: stream.capacity must not be negative", ErrInvalidConfig)
	}
	if c.Watch.DebounceMS < 0 {
		return fmt.Errorf("%w: watch.debounce_ms must not be negative", ErrInvalidConfig)
	}
	if len(c.Watch.Paths) == 0 {
		return fmt.Errorf("%w: watch.paths is empty", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("%w: metrics.addr is required when metrics are enabled", ErrInvalidConfig)
	}
	if c.Script.Path != "" && c.Script.Function == "" {
		return fmt.Errorf("%w: script.function is required with script.path", ErrInvalidConfig)
	}
	return nil
}
