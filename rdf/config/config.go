// Package config loads the YAML configuration shared by the rdfql tools.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wbrown/janus-rdf/rdf/annotations"
	"github.com/wbrown/janus-rdf/rdf/executor"
	"github.com/wbrown/janus-rdf/rdf/index"
)

// Backend names a storage implementation
type Backend string

const (
	BackendBadger Backend = "badger"
	BackendBleve  Backend = "bleve"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// StorageConfig selects and locates the triple index
type StorageConfig struct {
	// Backend is "badger" (default) or "bleve"
	Backend Backend `yaml:"backend"`

	// Path is the database directory. Required unless InMemory is set.
	Path string `yaml:"path,omitempty"`

	// InMemory keeps the index in memory; nothing is persisted
	InMemory bool `yaml:"in_memory,omitempty"`
}

// ExecutorConfig mirrors executor.ExecutorOptions
type ExecutorConfig struct {
	Workers        int  `yaml:"workers,omitempty"` // 0 = runtime.NumCPU()
	ParallelJoin   bool `yaml:"parallel_join"`
	FilterPushdown bool `yaml:"filter_pushdown"`
}

// CacheConfig sizes the index caches. Disabled skips caching entirely.
type CacheConfig struct {
	Disabled        bool  `yaml:"disabled,omitempty"`
	ResolveEntries  int   `yaml:"resolve_entries,omitempty"`
	DocumentMaxCost int64 `yaml:"document_max_cost,omitempty"`
}

// Config is the complete configuration
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Executor ExecutorConfig `yaml:"executor"`
	Cache    CacheConfig    `yaml:"cache"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendBadger,
			Path:    "rdf.db",
		},
		Executor: ExecutorConfig{
			FilterPushdown: true,
		},
	}
}

// Load reads path over the defaults and validates the result. Keys
// missing from the file keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for in-memory YAML
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values no component accepts
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendBadger, BackendBleve:
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("%w: storage path is required unless in_memory is set", ErrInvalidConfig)
	}
	if c.Executor.Workers < 0 {
		return fmt.Errorf("%w: executor workers must be non-negative", ErrInvalidConfig)
	}
	if c.Cache.ResolveEntries < 0 || c.Cache.DocumentMaxCost < 0 {
		return fmt.Errorf("%w: cache sizes must be non-negative", ErrInvalidConfig)
	}
	return nil
}

// ExecutorOptions converts the executor section
func (c *Config) ExecutorOptions(handler annotations.Handler, logger *slog.Logger) executor.ExecutorOptions {
	opts := executor.DefaultOptions()
	opts.Workers = c.Executor.Workers
	opts.ParallelJoin = c.Executor.ParallelJoin
	opts.FilterPushdown = c.Executor.FilterPushdown
	opts.Handler = handler
	opts.Logger = logger
	return opts
}

// IndexCacheConfig converts the cache section
func (c *Config) IndexCacheConfig() index.CacheConfig {
	return index.CacheConfig{
		ResolveEntries:  c.Cache.ResolveEntries,
		DocumentMaxCost: c.Cache.DocumentMaxCost,
	}
}

// Write serializes the configuration as YAML
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}
