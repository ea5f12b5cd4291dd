package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/pkg/config"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of the config file",
	Long: `Print a JSON schema describing the config file, for editor completion
and CI validation.

Examples:
  srvd config schema > srvd.schema.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.Schema("srvd configuration")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}
