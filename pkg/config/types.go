package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent recall configuration stored as config.toml
// in the .recall/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Proxy       ProxyConfig       `toml:"proxy"`
	API         APIConfig         `toml:"api"`
	Injection   InjectionConfig   `toml:"injection"`
	Retrieval   RetrievalConfig   `toml:"retrieval"`
	Learning    LearningConfig    `toml:"learning"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig selects and locates the entry store shared by proxy and API.
type StorageConfig struct {
	// Driver is one of sqlite, postgres or memory.
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ProxyConfig holds proxy-specific settings.
type ProxyConfig struct {
	Upstream string `toml:"upstream,omitempty"`
	Listen   string `toml:"listen,omitempty"`

	// Timeout bounds a single upstream call, as a Go duration string.
	Timeout string `toml:"timeout,omitempty"`
}

// TimeoutDuration parses Timeout.
func (p ProxyConfig) TimeoutDuration() (time.Duration, error) {
	d, err := time.ParseDuration(p.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid proxy.timeout %q: %w", p.Timeout, err)
	}
	return d, nil
}

// APIConfig holds management API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// InjectionConfig controls prompt augmentation. These settings hot-reload.
type InjectionConfig struct {
	Enabled          bool   `toml:"enabled"`
	Template         string `toml:"template,omitempty"`
	MaxContextLength int    `toml:"max_context_length,omitempty"`
}

// RetrievalConfig tunes entry ranking and packing.
type RetrievalConfig struct {
	// Packing is best_effort or strict.
	Packing      string  `toml:"packing,omitempty"`
	MinRelevance float64 `toml:"min_relevance,omitempty"`
}

// LearningConfig controls the background learning pipeline.
type LearningConfig struct {
	Enabled        bool    `toml:"enabled"`
	Workers        int     `toml:"workers,omitempty"`
	QueueSize      int     `toml:"queue_size,omitempty"`
	Reinforce      bool    `toml:"reinforce"`
	DedupThreshold float64 `toml:"dedup_threshold,omitempty"`
}

// EventStreamConfig selects where learned-entry events are published.
type EventStreamConfig struct {
	// Provider is nop or kafka.
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error

	// list keys hold comma-separated values.
	list bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatKey(name string, field func(c *Config) *float64) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatFloat(*field(c), 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("invalid value for %s: must be within [0, 1]", name)
			}
			*field(c) = f
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"proxy.upstream": stringKey(func(c *Config) *string { return &c.Proxy.Upstream }),
	"proxy.listen":   stringKey(func(c *Config) *string { return &c.Proxy.Listen }),
	"proxy.timeout": {
		get: func(c *Config) string { return c.Proxy.Timeout },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for proxy.timeout: %w", err)
			}
			c.Proxy.Timeout = v
			return nil
		},
	},

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),

	"injection.enabled":            boolKey("injection.enabled", func(c *Config) *bool { return &c.Injection.Enabled }),
	"injection.template":           stringKey(func(c *Config) *string { return &c.Injection.Template }),
	"injection.max_context_length": intKey("injection.max_context_length", func(c *Config) *int { return &c.Injection.MaxContextLength }),

	"retrieval.packing":       stringKey(func(c *Config) *string { return &c.Retrieval.Packing }),
	"retrieval.min_relevance": floatKey("retrieval.min_relevance", func(c *Config) *float64 { return &c.Retrieval.MinRelevance }),

	"learning.enabled":         boolKey("learning.enabled", func(c *Config) *bool { return &c.Learning.Enabled }),
	"learning.workers":         intKey("learning.workers", func(c *Config) *int { return &c.Learning.Workers }),
	"learning.queue_size":      intKey("learning.queue_size", func(c *Config) *int { return &c.Learning.QueueSize }),
	"learning.reinforce":       boolKey("learning.reinforce", func(c *Config) *bool { return &c.Learning.Reinforce }),
	"learning.dedup_threshold": floatKey("learning.dedup_threshold", func(c *Config) *float64 { return &c.Learning.DedupThreshold }),

	"eventstream.provider": stringKey(func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers": {
		list: true,
		get:  func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			c.EventStream.Brokers = nil
			for _, b := range strings.Split(v, ",") {
				if b = strings.TrimSpace(b); b != "" {
					c.EventStream.Brokers = append(c.EventStream.Brokers, b)
				}
			}
			return nil
		},
	},
	"eventstream.topic": stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
}
