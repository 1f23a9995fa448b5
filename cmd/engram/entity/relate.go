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

type relateCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string

	relType string
	weight  float64
	viper   *viper.Viper
}

const relateLongDesc string = `Relate two entities.

Merges a directed, typed, weighted edge from one entity to another. Both
entities must already exist. Relating the same pair again updates the type
and weight in place rather than adding a second edge.

Examples:
  engram entity relate grace univac --type worked_on
  engram entity relate grace cobol --type created --weight 0.9`

const relateShortDesc string = "Relate two entities"

func newRelateCmd() *cobra.Command {
	cmder := &relateCommander{}

	cmd := &cobra.Command{
		Use:   "relate <from> <to>",
		Short: relateShortDesc,
		Long:  relateLongDesc,
		Args:  cobra.ExactArgs(2),
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
			return cmder.run(args[0], args[1], debug)
		},
	}

	config.AddStringFlag(cmd, graphFlags, config.FlagGraphURI, &cmder.graphURI)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphUser, &cmder.graphUser)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphPassword, &cmder.graphPassword)
	config.AddStringFlag(cmd, graphFlags, config.FlagGraphDatabase, &cmder.graphDatabase)

	cmd.Flags().StringVar(&cmder.relType, "type", "related_to", "Relationship type")
	cmd.Flags().Float64Var(&cmder.weight, "weight", 1.0, "Relationship weight")

	return cmd
}

func (c *relateCommander) run(from, to string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	if err := client.RelateEntities(ctx, from, to, c.relType, c.weight); err != nil {
		return err
	}

	fmt.Printf("\n  %s Related %s -> %s (%s)\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(from),
		cliui.ValueStyle.Render(to),
		c.relType,
	)

	return nil
}
