package main

import (
	"github.com/spf13/cobra"

	"github.com/Amr-9/omnivanity/internal/ui"
)

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the supported networks and their address formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ui.NewConsole(cmd.OutOrStdout()).PrintChains()
		return nil
	},
}
