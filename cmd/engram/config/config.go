// Package configcmder provides the config command for managing persistent
// engram configuration stored in the .engram/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent engram configuration.

Configuration is stored as config.toml in the .engram/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  graph.uri, graph.username, graph.password, graph.database,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  chunking.max_chars, chunking.min_chars, chunking.overlap,
  ingest.workers, ingest.queue_size,
  eventstream.provider, eventstream.brokers, eventstream.topic,
  memory.user_label, memory.container_tag

Use subcommands to get, set, or list configuration values:
  engram config set <key> <value>    Set a configuration value
  engram config get <key>            Get a configuration value
  engram config list                 List all configuration values

Examples:
  engram config set graph.uri bolt://graph.internal:7687
  engram config set embedding.model text-embedding-3-large
  engram config get embedding.dimensions
  engram config list`

const configShortDesc string = "Manage persistent engram configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
