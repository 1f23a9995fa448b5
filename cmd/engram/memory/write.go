package memorycmder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	embeddingutils "github.com/papercomputeco/engram/pkg/embeddings/utils"
	"github.com/papercomputeco/engram/pkg/eventstream"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

type writeCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	containerTag  string

	memoryType string
	confidence float64
	updates    string
	extends    string
	derives    []string
	source     string
	owner      string
	skipEmbed  bool
	viper      *viper.Viper
}

const writeLongDesc string = `Write a memory revision.

By default the content becomes a new root memory. Pass exactly one of
--updates, --extends, or --derives to relate it to existing memories:

  --updates <id>       Supersede an existing memory. The prior memory's
                       validity window is closed and the new one becomes
                       latest in its lineage.
  --extends <id>       Add detail alongside an existing memory. Both stay
                       current.
  --derives <id,id>    Synthesize a conclusion from two or more memories.

Pass --source with a document or chunk ID to record where the memory was
extracted from, and --owner to attach it to an owner node.

Examples:
  engram memory write "prefers dark mode"
  engram memory write --type preference "prefers tabs" --updates 4f1c...
  engram memory write --derives 4f1c...,9a2b... "works late on Fridays"
  engram memory write --source 7c2d... --owner alice "shipped the beta"`

const writeShortDesc string = "Write a memory revision"

func newWriteCmd() *cobra.Command {
	cmder := &writeCommander{}

	cmd := &cobra.Command{
		Use:   "write <content>",
		Short: writeShortDesc,
		Long:  writeLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, graphFlags, graphFlagKeys)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			return cmder.run(args[0], debug)
		},
	}

	config.AddStringFlag(cmd, graphFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphDatabase, &cmder.graphDatabase)
	config.AddStringFlag(cmd, graphFlags, config.FlagContainerTag, &cmder.containerTag)

	cmd.Flags().StringVar(&cmder.memoryType, "type", "fact", "Memory type (fact, preference, episode)")
	cmd.Flags().Float64Var(&cmder.confidence, "confidence", 1.0, "Confidence in [0,1]")
	cmd.Flags().StringVar(&cmder.updates, "updates", "", "ID of the memory this supersedes")
	cmd.Flags().StringVar(&cmder.extends, "extends", "", "ID of the memory this extends")
	cmd.Flags().StringSliceVar(&cmder.derives, "derives", nil, "IDs of the memories this derives from")
	cmd.Flags().StringVar(&cmder.source, "source", "", "ID of the document or chunk this memory was extracted from")
	cmd.Flags().StringVar(&cmder.owner, "owner", "", "Owner ID to attach the memory to")
	cmd.Flags().BoolVar(&cmder.skipEmbed, "skip-embeddings", false, "Store the memory without an embedding")

	return cmd
}

// revision translates the mutually exclusive lineage flags.
func (c *writeCommander) revision() (memory.Revision, error) {
	set := 0
	if c.updates != "" {
		set++
	}
	if c.extends != "" {
		set++
	}
	if len(c.derives) > 0 {
		set++
	}
	if set > 1 {
		return nil, fmt.Errorf("--updates, --extends, and --derives are mutually exclusive")
	}

	switch {
	case c.updates != "":
		id, err := uuid.Parse(c.updates)
		if err != nil {
			return nil, fmt.Errorf("invalid --updates id: %w", err)
		}
		return memory.Update{PriorID: id}, nil

	case c.extends != "":
		id, err := uuid.Parse(c.extends)
		if err != nil {
			return nil, fmt.Errorf("invalid --extends id: %w", err)
		}
		return memory.Extend{RelatedID: id}, nil

	case len(c.derives) > 0:
		ids := make([]uuid.UUID, 0, len(c.derives))
		for _, raw := range c.derives {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil {
				return nil, fmt.Errorf("invalid --derives id %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		return memory.Derive{SourceIDs: ids}, nil

	default:
		return memory.Create{}, nil
	}
}

func (c *writeCommander) run(content string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	rev, err := c.revision()
	if err != nil {
		return err
	}

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	opts := []memory.Option{memory.WithLogger(log)}
	if !c.skipEmbed {
		embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
			ProviderType: c.viper.GetString("embedding.provider"),
			TargetURL:    c.viper.GetString("embedding.target"),
			Model:        c.viper.GetString("embedding.model"),
			APIKey:       apiKeyFromEnv(),
			Dimensions:   c.viper.GetUint("embedding.dimensions"),
			Logger:       log,
		})
		if err != nil {
			return fmt.Errorf("creating embedder: %w", err)
		}
		defer embedder.Close()
		opts = append(opts, memory.WithEmbedder(embedder))
	}

	publisher, err := newPublisher(c.viper, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	svc := memory.New(client, opts...)

	candidate := memory.Candidate{
		Content:      content,
		Type:         graph.MemoryType(c.memoryType),
		ContainerTag: c.viper.GetString("memory.container_tag"),
		Confidence:   c.confidence,
	}
	if c.source != "" {
		sourceID, err := uuid.Parse(c.source)
		if err != nil {
			return fmt.Errorf("invalid --source id: %w", err)
		}
		candidate.SourceDocID = sourceID
	}

	written, err := svc.Upsert(ctx, candidate, rev)
	if err != nil {
		return err
	}

	if c.owner != "" {
		label := c.viper.GetString("memory.user_label")
		if err := client.GetOrCreateUser(ctx, label, c.owner); err != nil {
			return err
		}
		if err := client.LinkOwner(ctx, written.ID, label, c.owner); err != nil {
			return err
		}
	}

	event := &eventstream.MemoryEvent{
		SchemaVersion: eventstream.SchemaVersionV1,
		EventType:     eventstream.EventTypeMemoryWritten,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		MemoryID:      written.ID.String(),
		ContainerTag:  written.ContainerTag,
		MemoryType:    string(written.MemoryType),
		Revision:      fmt.Sprintf("%T", rev),
	}
	if err := publisher.PublishMemory(ctx, event); err != nil {
		log.Warn("failed to publish memory event", "error", err)
	}

	fmt.Printf("\n  %s Wrote memory %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(written.ID.String()),
	)

	return nil
}
