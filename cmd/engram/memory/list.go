package memorycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	"github.com/papercomputeco/engram/pkg/utils"
)

type listCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	containerTag  string
	limit         int
	viper         *viper.Viper
}

const listLongDesc string = `List current memories.

Shows the latest, unforgotten memories in the container, newest first.
Superseded and forgotten memories are excluded.

Examples:
  engram memory list
  engram memory list --container-tag project-x --limit 20`

const listShortDesc string = "List current memories"

func newListCmd() *cobra.Command {
	cmder := &listCommander{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.NoArgs,
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
		RunE: func(cmd *cobra.Command, _ []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			return cmder.run(debug)
		},
	}

	config.AddStringFlag(cmd, graphFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphDatabase, &cmder.graphDatabase)
	config.AddStringFlag(cmd, graphFlags, config.FlagContainerTag, &cmder.containerTag)

	cmd.Flags().IntVar(&cmder.limit, "limit", 50, "Maximum memories to list")

	return cmd
}

func (c *listCommander) run(debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	svc := memory.New(client, memory.WithLogger(log))

	containerTag := c.viper.GetString("memory.container_tag")

	memories, err := svc.Latest(ctx, containerTag, c.limit)
	if err != nil {
		return err
	}

	if len(memories) == 0 {
		fmt.Printf("\n  %s\n\n", cliui.DimStyle.Render("No memories in container "+containerTag))
		return nil
	}

	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Container:"),
		cliui.ValueStyle.Render(containerTag),
	)

	for _, m := range memories {
		fmt.Printf("  %s  %-10s  %s\n",
			cliui.DimStyle.Render(m.ID.String()),
			cliui.KeyStyle.Render(string(m.MemoryType)),
			utils.Truncate(m.Content, 60),
		)
	}
	fmt.Println()

	return nil
}
