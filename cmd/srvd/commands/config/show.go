package config

import (
	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/output"
	"github.com/marmos91/srvkit/pkg/config"
)

const redacted = "********"

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings srvd would start with: the config file merged with
SRVD_* environment variables and defaults. Secrets are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, envPrefix, appName)
		if err != nil {
			return err
		}
		redact(cfg)

		p, err := cmdutil.GetPrinter()
		if err != nil {
			return err
		}
		if p.Format() == output.FormatTable {
			// settings are nested; YAML reads better than a flattened table
			return output.PrintYAML(p.Writer(), cfg)
		}
		return p.Print(cfg)
	},
}

func redact(cfg *config.Settings) {
	if cfg.Admin.TokenSecret != "" {
		cfg.Admin.TokenSecret = redacted
	}
	if cfg.Stats.S3.SecretAccessKey != "" {
		cfg.Stats.S3.SecretAccessKey = redacted
	}
}
