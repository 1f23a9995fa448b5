// Package memorycmder provides commands for writing, forgetting, and
// listing memories in the graph.
package memorycmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	"github.com/papercomputeco/engram/pkg/graph"
)

const memoryLongDesc string = `Work with memories in the graph.

A memory is a durable statement with a temporal validity window. New
information supersedes, extends, or derives from what is already stored
rather than overwriting it, so the history of what was believed and when
stays queryable.

Use subcommands to write, forget, or list memories:
  engram memory write     Write a memory revision
  engram memory forget    Mark a memory forgotten
  engram memory list      List current memories
  engram memory show      Show a single memory`

const memoryShortDesc string = "Work with memories in the graph"

func NewMemoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "memory",
		Short: memoryShortDesc,
		Long:  memoryLongDesc,
	}

	cmd.AddCommand(newWriteCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

var graphFlags = config.FlagSet{
	config.FlagGraphURI:      {Name: "graph-uri", ViperKey: "graph.uri", Description: "Graph store bolt URI"},
	config.FlagGraphUser:     {Name: "graph-user", ViperKey: "graph.username", Description: "Graph store username"},
	config.FlagGraphPassword: {Name: "graph-password", ViperKey: "graph.password", Description: "Graph store password"},
	config.FlagGraphDatabase: {Name: "graph-database", ViperKey: "graph.database", Description: "Graph store database name"},
	config.FlagContainerTag:  {Name: "container-tag", Shorthand: "t", ViperKey: "memory.container_tag", Description: "Container tag"},
}

var graphFlagKeys = []string{
	config.FlagGraphURI,
	config.FlagGraphUser,
	config.FlagGraphPassword,
	config.FlagGraphDatabase,
	config.FlagContainerTag,
}

// newGraphClient dials the configured graph store.
func newGraphClient(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*graph.Client, error) {
	client, err := graph.New(ctx, graph.Config{
		URI:        v.GetString("graph.uri"),
		Username:   v.GetString("graph.username"),
		Password:   v.GetString("graph.password"),
		Database:   v.GetString("graph.database"),
		Dimensions: v.GetUint("embedding.dimensions"),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("connecting to graph store: %w", err)
	}
	return client, nil
}

// newPublisher selects the configured event publisher.
func newPublisher(v *viper.Viper, logger *slog.Logger) (eventstream.Publisher, error) {
	return eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: v.GetString("eventstream.provider"),
		Brokers:      v.GetStringSlice("eventstream.brokers"),
		Topic:        v.GetString("eventstream.topic"),
		Logger:       logger,
	})
}

func apiKeyFromEnv() string {
	return os.Getenv("OPENAI_API_KEY")
}
