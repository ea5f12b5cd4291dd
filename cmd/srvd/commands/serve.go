package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [flags]",
	Short: "Run the demonstration server",
	Long: `Run the srvd demonstration server on the srvkit lifecycle.

Flags use the single-dash srvkit syntax and are parsed by the server itself,
so "srvd serve -help" lists every built-in and demo flag. Each flag can also
be set through SRVD_<NAME> environment variables or a YAML config file.

Examples:
  srvd serve -foo=bar -admin.port=:9990
  srvd serve -demo.interval=100ms -demo.fail_after=10
  SRVD_LOG_LEVEL=DEBUG srvd serve -config=/etc/srvd/config.yaml`,
	DisableFlagParsing: true,
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runServe(args))
	},
}

// runServe builds the demo server and runs it to completion.
func runServe(args []string, opts ...server.Option) int {
	srv := server.New("srvd", append([]server.Option{server.WithVersion(Version)}, opts...)...)
	if _, err := newDemoApp(srv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return server.ExitFailure
	}
	return srv.Main(args)
}
