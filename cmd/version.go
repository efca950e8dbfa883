package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/netbirdio/iceagent/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the iceagent version",
	Args:  cobra.NoArgs,
	// the version does not depend on the config file
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Version())
	},
}
