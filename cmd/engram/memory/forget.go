package memorycmder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/engram/pkg/cliui"
	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
)

type forgetCommander struct {
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
	containerTag  string
	viper         *viper.Viper
}

const forgetLongDesc string = `Mark a memory forgotten.

The memory stays in the graph for audit but is excluded from listings and
recall. Forgetting is idempotent: repeating the command leaves the original
forgotten timestamp in place.

Examples:
  engram memory forget 4f1c9b2e-...`

const forgetShortDesc string = "Mark a memory forgotten"

func newForgetCmd() *cobra.Command {
	cmder := &forgetCommander{}

	cmd := &cobra.Command{
		Use:   "forget <id>",
		Short: forgetShortDesc,
		Long:  forgetLongDesc,
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

func (c *forgetCommander) run(rawID string, debug bool) error {
	log := logger.New(logger.WithDebug(debug), logger.WithPretty(true))

	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid memory id: %w", err)
	}

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	svc := memory.New(client, memory.WithLogger(log))
	if err := svc.Forget(ctx, id); err != nil {
		return err
	}

	fmt.Printf("\n  %s Forgot memory %s\n\n",
		cliui.SuccessMark,
		cliui.ValueStyle.Render(id.String()),
	)

	return nil
}
