package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsRemote bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show acceptance statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		out := cmd.OutOrStdout()
		if statsRemote {
			rs, err := coord.RemoteStatistics(commandContext(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "total: %d\naccepted: %d\nrejected: %d\nacceptance rate: %.1f%%\n",
				rs.TotalFeedback, rs.Accepted, rs.Rejected, rs.AcceptanceRate)
			return nil
		}

		s := coord.Statistics()
		fmt.Fprintf(out, "namespace: %s\ntotal: %d\naccepted: %d\nrejected: %d\nacceptance rate: %.1f%%\n",
			coord.Namespace(), s.Total, s.Accepted, s.Rejected, s.AcceptanceRate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().BoolVar(&statsRemote, "remote", false, "Show service-wide statistics from the feedback API")
}
