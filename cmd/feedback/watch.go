package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
	"github.com/saferoomai/feedback/pkg/adapters/lifecycle"
	"github.com/saferoomai/feedback/pkg/core"
)

var watchCmd = &cobra.Command{
	Use:   "watch [namespace-pattern]",
	Short: "Print changes made to stored namespaces by other processes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, err := feedback.OpenStore(ctx, options()...)
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer closer.Close()
		}

		watchable, ok := store.(core.Watchable)
		if !ok {
			return fmt.Errorf("adapter %s does not support watching", cfg.Store.Adapter)
		}

		pattern := ""
		if len(args) == 1 {
			pattern = core.StorageKey(args[0])
		}

		src := lifecycle.NewSource(watchable, pattern)
		if err := src.Start(ctx); err != nil {
			return err
		}
		for e := range src.Events() {
			fmt.Fprintln(cmd.OutOrStdout(), e.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
