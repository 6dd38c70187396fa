package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/recall/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

// Storage driver names accepted by storage.driver.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Event stream providers accepted by eventstream.provider.
const (
	EventStreamNop   = "nop"
	EventStreamKafka = "kafka"
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// orderedKeys follows the TOML section layout.
var orderedKeys = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"proxy.upstream",
	"proxy.listen",
	"proxy.timeout",
	"api.listen",
	"injection.enabled",
	"injection.template",
	"injection.max_context_length",
	"retrieval.packing",
	"retrieval.min_relevance",
	"learning.enabled",
	"learning.workers",
	"learning.queue_size",
	"learning.reinforce",
	"learning.dedup_threshold",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
}

// ValidConfigKeys returns all supported configuration key names in section order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}
	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target .recall/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}
	return LoadFile(c.targetPath)
}

// LoadFile reads and parses a config file, returning defaults when it does
// not exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// Booleans are left alone: ParseConfigTOML decodes on top of the defaults, so
// a missing key already holds its default and an explicit false must survive.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}

	if cfg.Proxy.Upstream == "" {
		cfg.Proxy.Upstream = defaults.Proxy.Upstream
	}
	if cfg.Proxy.Listen == "" {
		cfg.Proxy.Listen = defaults.Proxy.Listen
	}
	if cfg.Proxy.Timeout == "" {
		cfg.Proxy.Timeout = defaults.Proxy.Timeout
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Injection.Template == "" {
		cfg.Injection.Template = defaults.Injection.Template
	}
	if cfg.Injection.MaxContextLength == 0 {
		cfg.Injection.MaxContextLength = defaults.Injection.MaxContextLength
	}

	if cfg.Retrieval.Packing == "" {
		cfg.Retrieval.Packing = defaults.Retrieval.Packing
	}

	if cfg.Learning.Workers == 0 {
		cfg.Learning.Workers = defaults.Learning.Workers
	}
	if cfg.Learning.QueueSize == 0 {
		cfg.Learning.QueueSize = defaults.Learning.QueueSize
	}
	if cfg.Learning.DedupThreshold == 0 {
		cfg.Learning.DedupThreshold = defaults.Learning.DedupThreshold
	}

	if cfg.EventStream.Provider == "" {
		cfg.EventStream.Provider = defaults.EventStream.Provider
	}
	if cfg.EventStream.Topic == "" {
		cfg.EventStream.Topic = defaults.EventStream.Topic
	}
}

// Validate reports settings that cannot be served.
func (cfg *Config) Validate() error {
	var errs []error

	switch cfg.Storage.Driver {
	case StorageSQLite, StorageMemory:
	case StoragePostgres:
		if cfg.Storage.PostgresDSN == "" {
			errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q (available: sqlite, postgres, memory)", cfg.Storage.Driver))
	}

	if _, err := cfg.Proxy.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	switch cfg.Retrieval.Packing {
	case "best_effort", "strict":
	default:
		errs = append(errs, fmt.Errorf("unknown retrieval.packing %q (available: best_effort, strict)", cfg.Retrieval.Packing))
	}

	if cfg.Learning.DedupThreshold <= 0 || cfg.Learning.DedupThreshold > 1 {
		errs = append(errs, fmt.Errorf("learning.dedup_threshold must be within (0, 1], got %v", cfg.Learning.DedupThreshold))
	}

	switch cfg.EventStream.Provider {
	case EventStreamNop:
	case EventStreamKafka:
		if len(cfg.EventStream.Brokers) == 0 {
			errs = append(errs, errors.New("eventstream.brokers is required for the kafka provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown eventstream.provider %q (available: nop, kafka)", cfg.EventStream.Provider))
	}

	return errors.Join(errs...)
}

// SaveConfig persists the configuration to config.toml in the target .recall/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// ParseConfigTOML parses raw TOML bytes into a Config, on top of the defaults.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
