package main

import (
	"fmt"
	"io"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces [pattern]",
	Short: "List the namespaces present in storage",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid pattern: %s", pattern)
			}
		}

		ctx := commandContext(cmd)
		store, err := feedback.OpenStore(ctx, options()...)
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}

		names, err := feedback.Namespaces(ctx, store)
		if err != nil {
			return err
		}
		for _, ns := range names {
			if pattern != "" {
				if match, _ := doublestar.Match(pattern, ns); !match {
					continue
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), ns)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}
