package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
)

var getRemote bool

var getCmd = &cobra.Command{
	Use:   "get <subject>",
	Short: "Show the current decision for a suggestion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		subject := args[0]

		if getRemote {
			rec, err := feedback.NewTransport(options()...).FetchOne(commandContext(cmd), subject)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintf(out, "%s: no remote feedback\n", subject)
				return nil
			}
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(rec)
		}

		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		d, ok := coord.CurrentDecision(subject)
		if !ok {
			fmt.Fprintf(out, "%s: no decision\n", subject)
			return nil
		}
		fmt.Fprintf(out, "%s: %s\n", subject, d)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().BoolVar(&getRemote, "remote", false, "Ask the feedback API instead of local storage")
}
