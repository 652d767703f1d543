package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/welgevonden/marketbot/app/listing"
	corecmd "github.com/welgevonden/marketbot/core/cmd"
	coreconfig "github.com/welgevonden/marketbot/core/config"
)

func backendClient(flags *rootFlags) (*listing.Client, error) {
	cfg, err := coreconfig.LoadBackend(corecmd.ResolveConfigPath(flags.configPath, "", ""))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return listing.New(cfg.Backend.BaseURL, cfg.Backend.Timeout), nil
}

func newListingsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "listings",
		Short: "Print the backend's listing feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := backendClient(flags)
			if err != nil {
				return err
			}
			entries, err := client.ListFeed(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no listings")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tDESCRIPTION")
			for _, e := range entries {
				fmt.Fprintf(w, "%d\t%d\t%s\n", e.ID, e.UserTelegramID, oneLine(e.Description))
			}
			return w.Flush()
		},
	}
}

func newPublishCmd(flags *rootFlags) *cobra.Command {
	var (
		user        uint64
		description string
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Post a test listing to the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == 0 {
				return errors.New("--user must be a Telegram user id")
			}
			if strings.TrimSpace(description) == "" {
				return errors.New("--description must not be empty")
			}
			client, err := backendClient(flags)
			if err != nil {
				return err
			}
			if err := client.Submit(cmd.Context(), listing.Listing{
				UserTelegramID: user,
				Description:    description,
			}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "published")
			return nil
		},
	}
	cmd.Flags().Uint64Var(&user, "user", 0, "Telegram user id to publish as")
	cmd.Flags().StringVar(&description, "description", "", "listing description")
	return cmd
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
