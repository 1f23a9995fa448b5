// Package ingestcmder provides the ingest command for running files through
// the ingestion pipeline.
package ingestcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	eventstreamutils "github.com/papercomputeco/engram/pkg/eventstream/utils"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/ingest"
	"github.com/papercomputeco/engram/pkg/ingest/worker"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/segment"
)

type IngestCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	embedProvider string
	embedTarget   string
	embedModel    string
	embedDims     uint
	maxChars      int
	minChars      int
	overlap       int
	workers       uint
	containerTag  string
	conversation  bool
	skipEmbed     bool
	debug         bool
	viper         *viper.Viper
	logger        *slog.Logger
}

const ingestLongDesc string = `Ingest files into the memory graph.

Each file becomes a document that is chunked, embedded, and indexed. Prose
is split on paragraph and sentence boundaries; pass --conversation to split
on speaker turns instead. Files are processed concurrently by a worker pool.

The embedding API key is read from the OPENAI_API_KEY environment variable
for the openai provider.

Examples:
  engram ingest notes.md
  engram ingest --conversation transcript.txt
  engram ingest --container-tag project-x docs/*.md
  engram ingest --skip-embeddings draft.txt
  cat notes.txt | engram ingest -`

const ingestShortDesc string = "Ingest files into the memory graph"

var ingestFlags = config.FlagSet{
	config.FlagGraphURI:       {Name: "graph-uri", ViperKey: "graph.uri", Description: "Graph store bolt URI"},
	config.FlagGraphUser:      {Name: "graph-user", ViperKey: "graph.username", Description: "Graph store username"},
	config.FlagGraphPassword:  {Name: "graph-password", ViperKey: "graph.password", Description: "Graph store password"},
	config.FlagGraphDatabase:  {Name: "graph-database", ViperKey: "graph.database", Description: "Graph store database name"},
	config.FlagEmbeddingProv:  {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (openai, ollama)"},
	config.FlagEmbeddingTgt:   {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding API base URL"},
	config.FlagEmbeddingModel: {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model name"},
	config.FlagEmbeddingDims:  {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimension"},
	config.FlagChunkMaxChars:  {Name: "chunk-max-chars", ViperKey: "chunking.max_chars", Description: "Maximum characters per chunk"},
	config.FlagChunkMinChars:  {Name: "chunk-min-chars", ViperKey: "chunking.min_chars", Description: "Minimum characters before a split"},
	config.FlagChunkOverlap:   {Name: "chunk-overlap", ViperKey: "chunking.overlap", Description: "Characters of overlap between chunks"},
	config.FlagIngestWorkers:  {Name: "ingest-workers", ViperKey: "ingest.workers", Description: "Concurrent ingestion workers"},
	config.FlagContainerTag:   {Name: "container-tag", Shorthand: "t", ViperKey: "memory.container_tag", Description: "Container tag for ingested documents"},
}

var ingestFlagKeys = []string{
	config.FlagGraphURI,
	config.FlagGraphUser,
	config.FlagGraphPassword,
	config.FlagGraphDatabase,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagChunkMaxChars,
	config.FlagChunkMinChars,
	config.FlagChunkOverlap,
	config.FlagIngestWorkers,
	config.FlagContainerTag,
}

func NewIngestCmd() *cobra.Command {
	cmder := &IngestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
		Args:  cobra.MinimumNArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, ingestFlags, ingestFlagKeys)
			cmder.viper = v

			cmder.debug, _ = cmd.Flags().GetBool("debug")
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return cmder.run(args)
		},
	}

	config.AddStringFlag(cmd, ingestFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, ingestFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, ingestFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, ingestFlags, config.FlagGraphDatabase, &cmder.graphDatabase)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, ingestFlags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, ingestFlags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddIntFlag(cmd, ingestFlags, config.FlagChunkMaxChars, &cmder.maxChars)
	config.AddIntFlag(cmd, ingestFlags, config.FlagChunkMinChars, &cmder.minChars)
	config.AddIntFlag(cmd, ingestFlags, config.FlagChunkOverlap, &cmder.overlap)
	config.AddUintFlag(cmd, ingestFlags, config.FlagIngestWorkers, &cmder.workers)
	config.AddStringFlag(cmd, ingestFlags, config.FlagContainerTag, &cmder.containerTag)

	cmd.Flags().BoolVar(&cmder.conversation, "conversation", false, "Split on speaker turns instead of paragraphs")
	cmd.Flags().BoolVar(&cmder.skipEmbed, "skip-embeddings", false, "Store chunks without embeddings")

	return cmd
}

func (c *IngestCommander) run(paths []string) error {
	c.logger = logger.New(logger.WithDebug(c.debug), logger.WithPretty(true))

	ctx := context.Background()

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
	defer client.Close(ctx)

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

	pool, err := worker.NewPool(&worker.Config{
		Processor:  assembler,
		NumWorkers: c.viper.GetUint("ingest.workers"),
		QueueSize:  c.viper.GetUint("ingest.queue_size"),
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	containerTag := c.viper.GetString("memory.container_tag")

	queued := 0
	for _, path := range paths {
		var raw []byte
		if path == "-" {
			raw, err = io.ReadAll(os.Stdin)
		} else {
			raw, err = os.ReadFile(path)
		}
		if err != nil {
			pool.Close()
			return fmt.Errorf("reading %s: %w", path, err)
		}

		contentType := graph.ContentTypeText
		if c.conversation || strings.EqualFold(filepath.Ext(path), ".chat") {
			contentType = graph.ContentTypeConversation
		}

		title := filepath.Base(path)
		sourceURL := "file://" + path
		if path == "-" {
			title = "stdin"
			sourceURL = ""
		}

		doc := &graph.Document{
			Title:        title,
			SourceURL:    sourceURL,
			ContentType:  contentType,
			RawContent:   string(raw),
			ContainerTag: containerTag,
		}

		if pool.Enqueue(worker.Job{Document: doc}) {
			queued++
		}
	}

	err = cliui.Step(os.Stdout, fmt.Sprintf("Ingesting %d file(s)", queued), func() error {
		pool.Close()
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Ingested %d of %d file(s)\n\n", cliui.SuccessMark, queued, len(paths))

	return nil
}
