package main

import (
	"github.com/spf13/cobra"

	"github.com/welgevonden/marketbot/app"
	corecmd "github.com/welgevonden/marketbot/core/cmd"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Long: `Start the bot in the configured run mode (longpoll or webhook) and
serve until SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath: flags.configPath,
				LoadConfig: app.LoadConfig,
				Bootstrap:  app.Bootstrap,
			})
		},
	}
}
