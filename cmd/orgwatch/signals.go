package main

import (
	"github.com/spf13/cobra"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "Print the active signal catalog as YAML",
	Long:  "Prints the catalog with configured weight overrides applied. The output is a valid signals_file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(cmd.Context())
		if err != nil {
			return err
		}
		return p.Catalog().Encode(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(signalsCmd)
}
