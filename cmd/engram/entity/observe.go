package entitycmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/graph"
	"github.com/papercomputeco/engram/pkg/logger"
)

type observeCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string

	entityType string
	viper      *viper.Viper
}

const observeLongDesc string = `Record observations about an entity.

The entity is merged by name: observing a new name creates it, observing an
existing one appends only the observations it does not already carry.
Existing observations are never removed or reordered.

Examples:
  engram entity observe grace "wrote the compiler"
  engram entity observe --type person grace "debugs with print statements"`

const observeShortDesc string = "Record observations about an entity"

func newObserveCmd() *cobra.Command {
	cmder := &observeCommander{}

	cmd := &cobra.Command{
		Use:   "observe <name> [observation]...",
		Short: observeShortDesc,
		Long:  observeLongDesc,
		Args:  cobra.MinimumNArgs(1),
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
			return cmder.run(args[0], args[1:], debug)
		},
	}

	config.AddStringFlag(cmd, graphFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphDatabase, &cmder.graphDatabase)

	cmd.Flags().StringVar(&cmder.entityType, "type", "", "Entity type (person, project, concept, ...)")

	return cmd
}

func (c *observeCommander) run(name string, observations []string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	entity, err := client.ObserveEntity(ctx, &graph.Entity{
		Name:         name,
		EntityType:   c.entityType,
		Observations: observations,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Observed %s (%d observation(s))\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(entity.Name),
		len(entity.Observations),
	)

	return nil
}
