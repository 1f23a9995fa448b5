package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the ENGRAM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (ENGRAM_GRAPH_URI, ENGRAM_EMBEDDING_MODEL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: ENGRAM_GRAPH_URI, ENGRAM_EVENTSTREAM_TOPIC, etc.
	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Graph
	v.SetDefault("graph.uri", d.Graph.URI)
	v.SetDefault("graph.username", d.Graph.Username)
	v.SetDefault("graph.password", d.Graph.Password)
	v.SetDefault("graph.database", d.Graph.Database)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)

	// Chunking
	v.SetDefault("chunking.max_chars", d.Chunking.MaxChars)
	v.SetDefault("chunking.min_chars", d.Chunking.MinChars)
	v.SetDefault("chunking.overlap", d.Chunking.Overlap)

	// Ingest
	v.SetDefault("ingest.workers", d.Ingest.Workers)
	v.SetDefault("ingest.queue_size", d.Ingest.QueueSize)

	// Event stream
	v.SetDefault("eventstream.provider", d.EventStream.Provider)
	v.SetDefault("eventstream.brokers", d.EventStream.Brokers)
	v.SetDefault("eventstream.topic", d.EventStream.Topic)

	// Memory
	v.SetDefault("memory.user_label", d.Memory.UserLabel)
	v.SetDefault("memory.container_tag", d.Memory.ContainerTag)
}
