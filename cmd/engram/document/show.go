package documentcmder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/utils"
)

type showCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	viper         *viper.Viper
}

const showLongDesc string = `Show a document and its chunks.

Prints the document's status and metadata, then its chunks in index order.

Examples:
  engram document show 7c2d9b2e-...`

const showShortDesc string = "Show a document and its chunks"

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: showShortDesc,
		Long:  showLongDesc,
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

	return cmd
}

func (c *showCommander) run(rawID string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid document id: %w", err)
	}

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	doc, err := client.GetDocument(ctx, id)
	if err != nil {
		return err
	}

	chunks, err := client.DocumentChunks(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Document:"), cliui.ValueStyle.Render(doc.Title))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Status:"), string(doc.Status))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Container:"), doc.ContainerTag)
	fmt.Printf("  %s %d\n\n", cliui.KeyStyle.Render("Chunks:"), len(chunks))

	for _, chunk := range chunks {
		fmt.Printf("  %3d  %s\n", chunk.ChunkIndex, utils.Truncate(chunk.Content, 70))
	}
	if len(chunks) > 0 {
		fmt.Println()
	}

	return nil
}
