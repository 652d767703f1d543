package main

import (
	"github.com/spf13/cobra"

	"github.com/welgevonden/marketbot/core/buildinfo"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "marketbot",
		Short: "Telegram bot for listing items for sale",
		Long: `marketbot walks Telegram users through listing an item: photos,
a description, a confirmation, then a POST to the listing backend.

Configuration comes from an optional YAML file (--config or CONFIG_PATH)
overlaid by environment variables.`,
		Version:       buildinfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to the YAML config file")

	root.AddCommand(newRunCmd(flags))
	root.AddCommand(newListingsCmd(flags))
	root.AddCommand(newPublishCmd(flags))
	return root
}
