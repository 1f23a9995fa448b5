package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent engram configuration stored as config.toml
// in the .engram/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Graph       GraphConfig       `toml:"graph"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Ingest      IngestConfig      `toml:"ingest"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Memory      MemoryConfig      `toml:"memory"`
}

// GraphConfig holds graph store connection settings.
type GraphConfig struct {
	URI      string `toml:"uri,omitempty"`
	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`
	Database string `toml:"database,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
}

// ChunkingConfig holds splitter settings.
type ChunkingConfig struct {
	MaxChars int `toml:"max_chars,omitempty"`
	MinChars int `toml:"min_chars,omitempty"`
	Overlap  int `toml:"overlap,omitempty"`
}

// IngestConfig holds pipeline worker settings.
type IngestConfig struct {
	Workers   uint `toml:"workers,omitempty"`
	QueueSize uint `toml:"queue_size,omitempty"`
}

// EventStreamConfig holds event publisher settings.
type EventStreamConfig struct {
	Provider string   `toml:"provider,omitempty"`
	Brokers  []string `toml:"brokers,omitempty"`
	Topic    string   `toml:"topic,omitempty"`
}

// MemoryConfig holds memory graph settings.
type MemoryConfig struct {
	UserLabel    string `toml:"user_label,omitempty"`
	ContainerTag string `toml:"container_tag,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintSetter(target func(c *Config) *uint, key string) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*target(c) = uint(n)
		return nil
	}
}

func intSetter(target func(c *Config) *int, key string) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		*target(c) = n
		return nil
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"graph.uri": {
		get: func(c *Config) string { return c.Graph.URI },
		set: func(c *Config, v string) error { c.Graph.URI = v; return nil },
	},
	"graph.username": {
		get: func(c *Config) string { return c.Graph.Username },
		set: func(c *Config, v string) error { c.Graph.Username = v; return nil },
	},
	"graph.password": {
		get: func(c *Config) string { return c.Graph.Password },
		set: func(c *Config, v string) error { c.Graph.Password = v; return nil },
	},
	"graph.database": {
		get: func(c *Config) string { return c.Graph.Database },
		set: func(c *Config, v string) error { c.Graph.Database = v; return nil },
	},
	"embedding.provider": {
		get: func(c *Config) string { return c.Embedding.Provider },
		set: func(c *Config, v string) error { c.Embedding.Provider = v; return nil },
	},
	"embedding.target": {
		get: func(c *Config) string { return c.Embedding.Target },
		set: func(c *Config, v string) error { c.Embedding.Target = v; return nil },
	},
	"embedding.model": {
		get: func(c *Config) string { return c.Embedding.Model },
		set: func(c *Config, v string) error { c.Embedding.Model = v; return nil },
	},
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: uintSetter(func(c *Config) *uint { return &c.Embedding.Dimensions }, "embedding.dimensions"),
	},
	"chunking.max_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.MaxChars) },
		set: intSetter(func(c *Config) *int { return &c.Chunking.MaxChars }, "chunking.max_chars"),
	},
	"chunking.min_chars": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.MinChars) },
		set: intSetter(func(c *Config) *int { return &c.Chunking.MinChars }, "chunking.min_chars"),
	},
	"chunking.overlap": {
		get: func(c *Config) string { return strconv.Itoa(c.Chunking.Overlap) },
		set: intSetter(func(c *Config) *int { return &c.Chunking.Overlap }, "chunking.overlap"),
	},
	"ingest.workers": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Ingest.Workers), 10) },
		set: uintSetter(func(c *Config) *uint { return &c.Ingest.Workers }, "ingest.workers"),
	},
	"ingest.queue_size": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Ingest.QueueSize), 10) },
		set: uintSetter(func(c *Config) *uint { return &c.Ingest.QueueSize }, "ingest.queue_size"),
	},
	"eventstream.provider": {
		get: func(c *Config) string { return c.EventStream.Provider },
		set: func(c *Config, v string) error { c.EventStream.Provider = v; return nil },
	},
	"eventstream.brokers": {
		get: func(c *Config) string { return strings.Join(c.EventStream.Brokers, ",") },
		set: func(c *Config, v string) error {
			if v == "" {
				c.EventStream.Brokers = nil
				return nil
			}
			parts := strings.Split(v, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			c.EventStream.Brokers = parts
			return nil
		},
	},
	"eventstream.topic": {
		get: func(c *Config) string { return c.EventStream.Topic },
		set: func(c *Config, v string) error { c.EventStream.Topic = v; return nil },
	},
	"memory.user_label": {
		get: func(c *Config) string { return c.Memory.UserLabel },
		set: func(c *Config, v string) error { c.Memory.UserLabel = v; return nil },
	},
	"memory.container_tag": {
		get: func(c *Config) string { return c.Memory.ContainerTag },
		set: func(c *Config, v string) error { c.Memory.ContainerTag = v; return nil },
	},
}
