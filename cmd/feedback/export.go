package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/saferoomai/feedback"
)

var exportFormat string

// snapshot is the exported view of a namespace.
type snapshot struct {
	Namespace string                       `json:"namespace" yaml:"namespace"`
	Decisions map[string]feedback.Decision `json:"decisions" yaml:"decisions"`
	Stats     feedback.Stats               `json:"stats" yaml:"stats"`
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print every decision of the namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := openCoordinator()
		if err != nil {
			return err
		}
		defer coord.Close()

		snap := snapshot{
			Namespace: coord.Namespace(),
			Decisions: coord.Decisions(),
			Stats:     coord.Statistics(),
		}

		out := cmd.OutOrStdout()
		switch exportFormat {
		case "json":
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(snap)
		case "yaml", "yml":
			encoder := yaml.NewEncoder(out)
			encoder.SetIndent(2)
			defer encoder.Close()
			return encoder.Encode(snap)
		default:
			return fmt.Errorf("unsupported format: %s", exportFormat)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json or yaml")
}
