package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saferoomai/feedback"
)

var (
	recordKind string
	recordMeta map[string]string
	recordJSON bool
)

var recordCmd = &cobra.Command{
	Use:   "record <subject> <accept|reject>",
	Short: "Record a decision on a suggestion",
	Long: `Record submits the decision to the feedback API and stores it as the
current decision for the subject. If the API is unreachable the decision is
recorded locally and the command still succeeds.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, err := feedback.ParseDecision(args[1])
		if err != nil {
			return err
		}

		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		md := make(feedback.Metadata, len(recordMeta))
		for k, v := range recordMeta {
			md[k] = v
		}

		ack, err := coord.RecordDecision(commandContext(cmd), args[0], decision, recordKind, md)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if recordJSON {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(map[string]any{
				"ack":    ack,
				"origin": ack.Origin,
			})
		}

		fmt.Fprintf(out, "%s %s (%s)\n", decision, args[0], ack.Origin)
		if ack.Message != "" {
			fmt.Fprintln(out, ack.Message)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordCmd)
	recordCmd.Flags().StringVarP(&recordKind, "kind", "k", "suggestion", "Kind of suggestion (anomaly, alert, recommendation...)")
	recordCmd.Flags().StringToStringVar(&recordMeta, "meta", nil, "Extra metadata as key=value pairs")
	recordCmd.Flags().BoolVar(&recordJSON, "json", false, "Output in JSON format")
}
