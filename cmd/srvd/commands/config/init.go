package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/prompt"
	"github.com/marmos91/srvkit/pkg/config"
	"github.com/marmos91/srvkit/pkg/flags"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with default settings",
	Long: `Write a config file holding the default value of every built-in
setting. With --interactive the admin port and logging are asked for first.

Examples:
  srvd config init
  srvd config init --config ./srvd.yaml --interactive`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file without asking")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for the most common settings")
}

func runInit(cmd *cobra.Command, args []string) error {
	target := path()

	if _, err := os.Stat(target); err == nil {
		ok, err := prompt.ConfirmWithForce(fmt.Sprintf("%s exists. Overwrite", target), initForce)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.Default()
	if initInteractive {
		if err := askSettings(cfg); err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	if err := config.SaveSettings(cfg, target); err != nil {
		return err
	}

	p, err := cmdutil.GetPrinter()
	if err != nil {
		return err
	}
	p.Success("Config written to " + target)
	return nil
}

func askSettings(cfg *config.Settings) error {
	port, err := prompt.Input("Admin listen address", cfg.Admin.Port, func(s string) error {
		_, err := flags.OfAddr().Parse(s)
		return err
	})
	if err != nil {
		return err
	}
	cfg.Admin.Port = port

	level, err := prompt.Select("Log level", []string{"DEBUG", "INFO", "WARN", "ERROR"})
	if err != nil {
		return err
	}
	cfg.Log.Level = level

	format, err := prompt.Select("Log format", []string{"text", "json"})
	if err != nil {
		return err
	}
	cfg.Log.Format = format

	out, err := prompt.Input("Log output (stdout, stderr or a file path)", cfg.Log.Output, func(s string) error {
		if strings.TrimSpace(s) == "" {
			return errors.New("output must not be empty")
		}
		return nil
	})
	if err != nil {
		return err
	}
	cfg.Log.Output = out
	return nil
}
