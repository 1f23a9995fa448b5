package memorycmder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
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

const showLongDesc string = `Show a single memory.

Prints the memory's content, type, confidence, and temporal validity
window, including superseded and forgotten memories that listings exclude.

Examples:
  engram memory show 4f1c9b2e-...`

const showShortDesc string = "Show a single memory"

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
		return fmt.Errorf("invalid memory id: %w", err)
	}

	ctx := context.Background()

	client, err := newGraphClient(ctx, c.viper, log)
	if err != nil {
		return err
	}
	defer client.Close(ctx)

	m, err := client.GetMemory(ctx, id)
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s %s\n", cliui.KeyStyle.Render("Memory:"), cliui.ValueStyle.Render(m.ID.String()))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Type:"), string(m.MemoryType))
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Container:"), m.ContainerTag)
	fmt.Printf("  %s %.2f\n", cliui.KeyStyle.Render("Confidence:"), m.Confidence)
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Valid from:"), m.ValidFrom.Format(time.RFC3339))

	switch {
	case m.ForgottenAt != nil:
		fmt.Printf("  %s forgotten %s\n", cliui.KeyStyle.Render("State:"), m.ForgottenAt.Format(time.RFC3339))
	case m.ValidTo != nil:
		fmt.Printf("  %s superseded %s\n", cliui.KeyStyle.Render("State:"), m.ValidTo.Format(time.RFC3339))
	default:
		fmt.Printf("  %s latest\n", cliui.KeyStyle.Render("State:"))
	}

	fmt.Printf("\n  %s\n\n", m.Content)

	return nil
}
