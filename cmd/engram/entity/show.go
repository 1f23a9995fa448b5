package entitycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
)

type showCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	viper         *viper.Viper
}

const showLongDesc string = `Show an entity and its observations.

Reading an entity counts as access: the access counter and last-accessed
timestamp are bumped as a separate write after the read.

Examples:
  engram entity show grace`

const showShortDesc string = "Show an entity and its observations"

func newShowCmd() *cobra.Command {
	cmder := &showCommander{}

	cmd := &cobra.Command{
		Use:   "show <name>",
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

func (c *showCommander) run(name string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	entity, err := client.GetEntity(ctx, name)
	if err != nil {
		return err
	}

	if err := client.TouchEntity(ctx, name); err != nil {
		log.Warn("failed to record entity access", "entity", name, "error", err)
	}

	fmt.Printf("\n  %s %s\n",
		cliui.KeyStyle.Render("Entity:"),
		cliui.ValueStyle.Render(entity.Name),
	)
	if entity.EntityType != "" {
		fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Type:"), entity.EntityType)
	}
	fmt.Printf("  %s %d\n\n", cliui.KeyStyle.Render("Accessed:"), entity.AccessCount)

	if len(entity.Observations) == 0 {
		fmt.Printf("  %s\n\n", cliui.DimStyle.Render("No observations"))
		return nil
	}

	for _, obs := range entity.Observations {
		fmt.Printf("  - %s\n", obs)
	}
	fmt.Println()

	return nil
}
