package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the dcs CLI: a bare root plus the four subcommands
// that together make up one Download Controller deployment.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dcs",
		Short:         "GHGA Download Controller Service",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewConsumeEventsCmd())
	root.AddCommand(NewCleanupOutboxCmd())
	root.AddCommand(NewMigrateCmd())

	return root
}
