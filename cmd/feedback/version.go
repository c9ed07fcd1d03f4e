package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of feedback",
	// The version needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "feedback version %s\n", strings.TrimSpace(feedback.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
