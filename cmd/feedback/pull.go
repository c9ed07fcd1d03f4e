package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull <subject>...",
	Short: "Merge remote decisions into local storage",
	Long: `Pull fetches the remote record of every subject concurrently and
merges the ones found into the namespace. Subjects that fail to load are
reported and left untouched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		res, err := coord.BulkLoadFromRemote(commandContext(cmd), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "loaded %d of %d\n", res.Loaded, len(args))
		for _, id := range res.Failed {
			fmt.Fprintf(out, "failed: %s\n", id)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
