// Package commands implements the srvd command line.
//
// "srvd serve" runs a demonstration server on srvkit; the other commands are
// clients of a running server's admin interface or manage its config file.
package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	configcmd "github.com/marmos91/srvkit/cmd/srvd/commands/config"
	statscmd "github.com/marmos91/srvkit/cmd/srvd/commands/stats"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "srvd",
	Short: "srvd - a demonstration server built on srvkit",
	Long: `srvd runs a small demonstration service on the srvkit lifecycle and
admin framework, and talks to the admin interface of any srvkit server.

Use "srvd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmdutil.Flags.AdminURL, _ = cmd.Flags().GetString("admin")
		cmdutil.Flags.Token, _ = cmd.Flags().GetString("token")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Timeout, _ = cmd.Flags().GetDuration("timeout")
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("admin", "", "Admin URL of the server (default $SRVD_ADMIN_URL or http://localhost:9990)")
	rootCmd.PersistentFlags().String("token", "", "Bearer token for protected admin endpoints")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Duration("timeout", 10*time.Second, "Admin request timeout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(flagsCmd)
	rootCmd.AddCommand(metricsCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(statscmd.Cmd)
}
