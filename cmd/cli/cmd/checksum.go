package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quote-engine/core/schema"
)

var checksumSchema string

// checksumCmd prints the schema checksum that quote envelopes record
var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Print the canonical checksum of a schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(checksumSchema)
		if err != nil {
			return err
		}
		sum, err := schema.Checksum(s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sum)
		return nil
	},
}

func init() {
	checksumCmd.Flags().StringVarP(&checksumSchema, "schema", "s", "", "path to the product schema (.json, .yaml)")
	_ = checksumCmd.MarkFlagRequired("schema")
}
