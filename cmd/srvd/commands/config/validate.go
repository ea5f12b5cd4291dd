package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a config file",
	Long:  `Load the config file with the environment applied and report every invalid setting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := config.NewSource(configPath, envPrefix, appName)
		if err != nil {
			return err
		}
		if _, err := src.Settings(); err != nil {
			return err
		}

		p, err := cmdutil.GetPrinter()
		if err != nil {
			return err
		}
		used := src.ConfigFileUsed()
		if used == "" {
			p.Warning("No config file found; defaults and environment are valid")
			return nil
		}
		p.Success(used + " is valid")
		return nil
	},
}
