package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grovetools/vdd/config"
	"github.com/grovetools/vdd/schema"
)

// NewSchemaCmd returns the command that prints the JSON Schemas.
func NewSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "schema [topology|config]",
		Short:     "Print the JSON Schema for topologies or vdd.yml",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"topology", "config"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "topology"
			if len(args) == 1 {
				kind = args[0]
			}

			var data []byte
			var err error
			switch kind {
			case "topology":
				data, err = schema.Generate()
			case "config":
				data, err = config.GenerateSchema()
			default:
				return fmt.Errorf("unknown schema %q, expected topology or config", kind)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
