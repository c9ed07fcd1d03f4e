package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every decision of the namespace",
	Long:  `Clear removes the local state of the namespace. The feedback API is not contacted.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		n := coord.Statistics().Total
		if err := coord.ClearAll(commandContext(cmd), ""); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "cleared %d decisions from %s\n", n, coord.Namespace())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
