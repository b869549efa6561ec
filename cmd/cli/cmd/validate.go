package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"quote-engine/core/schema"
)

var validateSchema string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a schema for authoring problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := schema.Load(validateSchema)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if err := schema.Validate(s); err != nil {
			for _, p := range schema.Problems(err) {
				fmt.Fprintf(out, "  - %s\n", p)
			}
			return err
		}

		controls := 0
		for _, g := range s.Groups {
			controls += len(g.Controls)
		}
		fmt.Fprintf(out, "Schema OK: %d groups, %d controls, %d derivations\n",
			len(s.Groups), controls, len(s.EffectiveDerivations()))
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateSchema, "schema", "s", "", "path to the product schema (.json, .yaml)")
	_ = validateCmd.MarkFlagRequired("schema")
}
