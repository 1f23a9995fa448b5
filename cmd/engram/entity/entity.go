// Package entitycmder provides commands for observing, relating, and
// inspecting entities in the knowledge graph.
package entitycmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/graph"
)

const entityLongDesc string = `Work with entities in the knowledge graph.

An entity is a named node that accumulates observations over time.
Observing merges: re-observing an entity appends only the observations it
does not already have, in order, and never discards existing ones.

Use subcommands to observe, relate, or inspect entities:
  engram entity observe   Record observations about an entity
  engram entity relate    Relate two entities
  engram entity show      Show an entity and its observations`

const entityShortDesc string = "Work with entities in the knowledge graph"

func NewEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: entityShortDesc,
		Long:  entityLongDesc,
	}

	cmd.AddCommand(newObserveCmd())
	cmd.AddCommand(newRelateCmd())
	cmd.AddCommand(newShowCmd())

	return cmd
}

var graphFlags = config.FlagSet{
	config.FlagGraphURI:      {Name: "graph-uri", ViperKey: "graph.uri", Description: "Graph store bolt URI"},
	config.FlagGraphUser:     {Name: "graph-user", ViperKey: "graph.username", Description: "Graph store username"},
	config.FlagGraphPassword: {Name: "graph-password", ViperKey: "graph.password", Description: "Graph store password"},
	config.FlagGraphDatabase: {Name: "graph-database", ViperKey: "graph.database", Description: "Graph store database name"},
}

var graphFlagKeys = []string{
	config.FlagGraphURI,
	config.FlagGraphUser,
	config.FlagGraphPassword,
	config.FlagGraphDatabase,
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
