package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies documented defaults
// to any zero-valued field that has one, and validates the result. Useful
// in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in the documented defaults for any field left at its
// zero value, mirroring [fsindex.DefaultConfig] for the index section.
func applyDefaults(cfg *Config) {
	def := Default(cfg.Index.RepoPath)
	if cfg.Index.MaxStringsChannels == 0 {
		cfg.Index.MaxStringsChannels = def.Index.MaxStringsChannels
	}
	if cfg.Index.MaxStringsChannelSize == 0 {
		cfg.Index.MaxStringsChannelSize = def.Index.MaxStringsChannelSize
	}
	if cfg.Index.MaxSearchableStringSize == 0 {
		cfg.Index.MaxSearchableStringSize = def.Index.MaxSearchableStringSize
	}
	if cfg.Index.TermSeparators == "" {
		cfg.Index.TermSeparators = def.Index.TermSeparators
	}
	if cfg.Events.QueueSize == 0 {
		cfg.Events.QueueSize = DefaultEventQueueSize
	}
	if cfg.Events.Concurrency == 0 {
		cfg.Events.Concurrency = DefaultEventConcurrency
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Index.RepoPath == "" {
		errs = append(errs, errors.New("index.repo_path is required"))
	}
	if cfg.Events.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("events.queue_size %d must not be negative", cfg.Events.QueueSize))
	}
	if cfg.Events.Concurrency < 0 {
		errs = append(errs, fmt.Errorf("events.concurrency %d must not be negative", cfg.Events.Concurrency))
	}
	if cfg.Server.ReadTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.read_timeout %s must not be negative", cfg.Server.ReadTimeout))
	}

	return errors.Join(errs...)
}
