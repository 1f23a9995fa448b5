// Package documentcmder provides commands for inspecting ingested
// documents and their chunks.
package documentcmder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/graph"
)

const documentLongDesc string = `Inspect ingested documents.

Use subcommands to examine a document and the chunks produced from it:
  engram document show    Show a document and its chunks`

const documentShortDesc string = "Inspect ingested documents"

func NewDocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "document",
		Short: documentShortDesc,
		Long:  documentLongDesc,
	}

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
