// Package watchcmder provides the watch command for following a directory
// and ingesting files as they appear.
package watchcmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/ingest"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/segment"
	"github.com/papercomputeco/engram/pkg/watch"
)

type WatchCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	containerTag  string
	skipEmbed     bool
	debug         bool
	viper         *viper.Viper
	logger        *slog.Logger
}

const watchLongDesc string = `Watch a directory and ingest files as they appear.

Scans the directory once on startup, then follows filesystem events.
Supported extensions are .txt, .md, .markdown, and .chat (conversations).
An ingest ledger in the .engram/ directory prevents files from being
re-ingested across restarts unless they change.

Runs until interrupted.

Examples:
  engram watch ./inbox
  engram watch --container-tag meetings ./transcripts`

const watchShortDesc string = "Watch a directory and ingest new files"

var watchFlags = config.FlagSet{
	config.FlagGraphURI:      {Name: "graph-uri", ViperKey: "graph.uri", Description: "Graph store bolt URI"},
	config.FlagGraphUser:     {Name: "graph-user", ViperKey: "graph.username", Description: "Graph store username"},
	config.FlagGraphPassword: {Name: "graph-password", ViperKey: "graph.password", Description: "Graph store password"},
	config.FlagGraphDatabase: {Name: "graph-database", ViperKey: "graph.database", Description: "Graph store database name"},
	config.FlagContainerTag:  {Name: "container-tag", Shorthand: "t", ViperKey: "memory.container_tag", Description: "Container tag for ingested documents"},
}

var watchFlagKeys = []string{
	config.FlagGraphURI,
	config.FlagGraphUser,
	config.FlagGraphPassword,
	config.FlagGraphDatabase,
	config.FlagContainerTag,
}

func NewWatchCmd() *cobra.Command {
	cmder := &WatchCommander{}

	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: watchShortDesc,
		Long:  watchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, watchFlags, watchFlagKeys)
			cmder.viper = v

			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(args[0], configDir)
		},
	}

	config.AddStringFlag(cmd, watchFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, watchFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, watchFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, watchFlags, config.FlagGraphDatabase, &cmder.graphDatabase)
	config.AddStringFlag(cmd, watchFlags, config.FlagContainerTag, &cmder.containerTag)

	cmd.Flags().BoolVar(&cmder.skipEmbed, "skip-embeddings", false, "Store chunks without embeddings")

	return cmd
}

func (c *WatchCommander) run(dir, configDir string) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := graph.New(ctx, graph.Config{
		URI:        c.viper.GetString("graph.uri"),
		Username:   c.viper.GetString("graph.username"),
		Password:   c.viper.GetString("graph.password"),
		Database:   c.viper.GetString("graph.database"),
		Dimensions: c.viper.GetUint("embedding.dimensions"),
	}, c.logger)
	if err != nil {
		return fmt.Errorf("connecting to graph store: %w", err)
	}
	defer client.Close(context.Background())

	var embedder embeddings.Embedder
	if !c.skipEmbed {
		embedder, err = embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: c.viper.GetString("embedding.provider"),
			TargetURL:    c.viper.GetString("embedding.target"),
			Model:        c.viper.GetString("embedding.model"),
			APIKey:       os.Getenv("OPENAI_API_KEY"),
			Dimensions:   c.viper.GetUint("embedding.dimensions"),
			Logger:       c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		defer embedder.Close()
	}

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: c.viper.GetString("eventstream.provider"),
		Brokers:      c.viper.GetStringSlice("eventstream.brokers"),
		Topic:        c.viper.GetString("eventstream.topic"),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	assembler, err := ingest.New(ingest.Config{
		Store:     client,
		Embedder:  embedder,
		Publisher: publisher,
		Chunking: segment.Options{
			MaxChars: c.viper.GetInt("chunking.max_chars"),
			MinChars: c.viper.GetInt("chunking.min_chars"),
			Overlap:  c.viper.GetInt("chunking.overlap"),
		},
		SkipEmbeddings: c.skipEmbed,
		Logger:         c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating pipeline: %w", err)
	}

	watcher, err := watch.New(watch.Config{
		Dir:          dir,
		Ingestor:     assembler,
		ContainerTag: c.viper.GetString("memory.container_tag"),
		LedgerDir:    configDir,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	c.logger.Info("watch stopped")
	return nil
}
