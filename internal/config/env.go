package config

import (
	"fmt"
	"strconv"
	"strings"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SLOTWIRE_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// envSetters maps environment variables to config fields.
var envSetters = map[string]func(*Config, string) error{
	"SLOTWIRE_LOG_LEVEL":  func(c *Config, v string) error { c.Log.Level = v; return nil },
	"SLOTWIRE_LOG_FORMAT": func(c *Config, v string) error { c.Log.Format = v; return nil },
	"SLOTWIRE_REGISTRY_COMPACT_MIN": func(c *Config, v string) error {
		return parseInt(v, &c.Registry.CompactMin)
	},
	"SLOTWIRE_REGISTRY_COMPACT_RATIO": func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		c.Registry.CompactRatio = f
		return nil
	},
	"SLOTWIRE_STREAM_CAPACITY": func(c *Config, v string) error {
		return parseInt(v, &c.Stream.Capacity)
	},
	"SLOTWIRE_WATCH_PATHS": func(c *Config, v string) error {
		c.Watch.Paths = splitList(v)
		return nil
	},
	"SLOTWIRE_WATCH_RECURSIVE": func(c *Config, v string) error {
		return parseBool(v, &c.Watch.Recursive)
	},
	"SLOTWIRE_WATCH_DEBOUNCE_MS": func(c *Config, v string) error {
		return parseInt(v, &c.Watch.DebounceMS)
	},
	"SLOTWIRE_WATCH_IGNORE": func(c *Config, v string) error {
		c.Watch.Ignore = splitList(v)
		return nil
	},
	"SLOTWIRE_METRICS_ENABLED": func(c *Config, v string) error {
		return parseBool(v, &c.Metrics.Enabled)
	},
	"SLOTWIRE_METRICS_ADDR":    func(c *Config, v string) error { c.Metrics.Addr = v; return nil },
	"SLOTWIRE_SCRIPT_PATH":     func(c *Config, v string) error { c.Script.Path = v; return nil },
	"SLOTWIRE_SCRIPT_FUNCTION": func(c *Config, v string) error { c.Script.Function = v; return nil },
}

// ApplyEnv overrides cfg with any SLOTWIRE_* variables found by lookup.
// Empty values are treated as set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	for name, set := range envSetters {
		v, ok := lookup(name)
		if !ok {
			continue
		}
		if err := set(cfg, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, name, err)
		}
	}
	return nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

// splitList splits a comma-separated list, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
