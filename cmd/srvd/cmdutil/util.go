// Package cmdutil holds the state shared by srvd's client subcommands.
package cmdutil

import (
	"context"
	"os"
	"time"

	"github.com/marmos91/srvkit/internal/cli/output"
	"github.com/marmos91/srvkit/pkg/adminclient"
)

// DefaultAdminURL is the admin server a client command talks to by default.
const DefaultAdminURL = "http://localhost:9990"

// EnvAdminURL overrides DefaultAdminURL.
const EnvAdminURL = "SRVD_ADMIN_URL"

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	AdminURL string
	Token    string
	Output   string
	NoColor  bool
	Timeout  time.Duration
}

// AdminURL returns the admin URL from --admin, the environment or the default.
func AdminURL() string {
	if Flags.AdminURL != "" {
		return Flags.AdminURL
	}
	if v := os.Getenv(EnvAdminURL); v != "" {
		return v
	}
	return DefaultAdminURL
}

// GetClient returns an admin client for the selected server.
func GetClient() *adminclient.Client {
	c := adminclient.New(AdminURL())
	if Flags.Token != "" {
		c = c.WithToken(Flags.Token)
	}
	return c
}

// Context returns a context bounded by --timeout.
func Context() (context.Context, context.CancelFunc) {
	timeout := Flags.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// GetPrinter returns a printer for the --output format.
func GetPrinter() (*output.Printer, error) {
	format, err := output.ParseFormat(Flags.Output)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !Flags.NoColor), nil
}

// PrintOutput prints data in the selected format, using table for the table format.
func PrintOutput(data any, table output.TableRenderer) error {
	p, err := GetPrinter()
	if err != nil {
		return err
	}
	if p.Format() == output.FormatTable && table != nil {
		return output.PrintTable(p.Writer(), table)
	}
	return p.Print(data)
}
