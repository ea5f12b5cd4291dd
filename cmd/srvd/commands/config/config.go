// Package config implements the "srvd config" commands, which manage the YAML
// file read by "srvd serve".
package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/pkg/config"
)

const (
	appName   = "srvd"
	envPrefix = "SRVD"
)

var configPath string

// Cmd is the parent command for config management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the server configuration file",
	Long: `Create, inspect and validate the YAML file holding srvd's built-in
settings. The default location is $XDG_CONFIG_HOME/srvd/config.yaml.`,
}

func init() {
	Cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the config file (default "+config.DefaultConfigPath(appName)+")")

	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}

// path returns --config or the default location.
func path() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath(appName)
}
