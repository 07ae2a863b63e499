// Package config provides the configuration schema and loader for scmem,
// using nested structs with yaml tags for the server, store, index, and
// events sections.
package config

import (
	"time"

	"github.com/scmem/scmem/internal/fsindex"
)

// Config is the root configuration structure for scmem, covering the
// store, index, and event-bus settings plus the ambient concerns (wire
// server address, logging) a complete deployment needs.
type Config struct {
	Store  StoreConfig   `yaml:"store"`
	Index  fsindex.Config `yaml:"index"`
	Events EventsConfig  `yaml:"events"`
	Server ServerConfig  `yaml:"server"`
}

// StoreConfig tunes the element store's allocation strategy.
type StoreConfig struct {
	// SegmentSize overrides how many element slots live in one segment
	// array. Zero means use the store's built-in default.
	SegmentSize int `yaml:"segment_size"`
}

// EventsConfig tunes the event bus's dispatch worker pool.
type EventsConfig struct {
	// QueueSize bounds each subscription's pending-event queue. Zero means
	// use the bus's built-in default.
	QueueSize int `yaml:"queue_size"`
	// Concurrency bounds how many delegates may run concurrently across the
	// whole bus. Zero means use the bus's built-in default.
	Concurrency int64 `yaml:"concurrency"`
}

// ServerConfig holds network and logging settings for the scmem wire
// protocol server and its ambient HTTP surface.
type ServerConfig struct {
	// ListenAddr is the TCP address the wire protocol server listens on
	// (e.g. ":5678"). Empty disables the wire server.
	ListenAddr string `yaml:"listen_addr"`

	// MetricsAddr is the HTTP address serving /healthz, /readyz, and
	// /metrics. Empty disables the HTTP surface.
	MetricsAddr string `yaml:"metrics_addr"`

	// ReadTimeout bounds how long a connection may sit waiting for a
	// command header or body before it is dropped.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// LogLevel controls verbosity. Valid values: "debug", "info", "warn",
	// "error".
	LogLevel LogLevel `yaml:"log_level"`
}

// LogLevel is the set of recognized log verbosity levels.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is the empty string (meaning "use the default")
// or one of the recognized levels.
func (l LogLevel) IsValid() bool {
	switch l {
	case "", LogDebug, LogInfo, LogWarn, LogError:
		return true
	default:
		return false
	}
}

// DefaultReadTimeout mirrors the C++ sctp server's SCTP_READ_TIMEOUT.
const DefaultReadTimeout = 10 * time.Second

// DefaultEventQueueSize and DefaultEventConcurrency mirror internal/event's
// own package defaults, duplicated here only as the values substituted when
// a loaded config leaves the fields at zero.
const (
	DefaultEventQueueSize  = 256
	DefaultEventConcurrency = 32
)

// Default returns a [Config] with every documented default applied, rooted
// at repoPath for the content index.
func Default(repoPath string) *Config {
	return &Config{
		Index: fsindex.DefaultConfig(repoPath),
		Events: EventsConfig{
			QueueSize:   DefaultEventQueueSize,
			Concurrency: DefaultEventConcurrency,
		},
		Server: ServerConfig{
			ListenAddr:  ":5678",
			MetricsAddr: ":9090",
			ReadTimeout: DefaultReadTimeout,
			LogLevel:    LogInfo,
		},
	}
}
