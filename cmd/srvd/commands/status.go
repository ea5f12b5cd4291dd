package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/output"
	"github.com/marmos91/srvkit/pkg/admin/handlers"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of a running server",
	Long: `Query the admin interface of a running srvkit server and print its
lifecycle phase, identity and admin routes.

Examples:
  srvd status
  srvd status --admin http://10.0.0.5:9990 -o json`,
	RunE: runStatus,
}

// statusReport is the combined view printed by srvd status.
type statusReport struct {
	Health handlers.HealthStatus `json:"health"`
	Server handlers.ServerInfo   `json:"server"`
	Routes []handlers.Route      `json:"routes"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()
	ctx, cancel := cmdutil.Context()
	defer cancel()

	var report statusReport
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Health, err = client.Health(gctx)
		return err
	})
	g.Go(func() (err error) {
		report.Server, err = client.ServerInfo(gctx)
		return err
	})
	g.Go(func() (err error) {
		report.Routes, err = client.Routes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to query %s: %w", client.BaseURL(), err)
	}

	p, err := cmdutil.GetPrinter()
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(report)
	}
	return printStatus(p, report)
}

func printStatus(p *output.Printer, r statusReport) error {
	switch r.Health.State {
	case handlers.StateOK:
		p.Success(fmt.Sprintf("%s is %s", r.Server.Name, r.Health.State))
	default:
		p.Warning(fmt.Sprintf("%s is %s", r.Server.Name, r.Health.State))
	}

	pairs := [][2]string{
		{"Phase", r.Health.Phase.String()},
		{"Version", r.Server.Version},
		{"Instance", r.Server.InstanceID},
		{"PID", fmt.Sprint(r.Server.PID)},
		{"Host", r.Server.Hostname},
		{"Uptime", r.Server.Uptime},
		{"Args", strings.Join(r.Server.Args, " ")},
	}
	if r.Health.Error != "" {
		pairs = append(pairs, [2]string{"Failed phase", r.Health.FailedPhase.String()}, [2]string{"Error", r.Health.Error})
	}
	if sd := r.Health.Shutdown; sd != nil {
		pairs = append(pairs, [2]string{"Shutdown", fmt.Sprintf("%s (%s)", sd.Reason, sd.Source)})
	}
	if err := output.PrintKeyValues(p.Writer(), pairs); err != nil {
		return err
	}

	p.Printf("\n")
	table := output.NewTable("METHOD", "PATH", "DESCRIPTION")
	for _, rt := range r.Routes {
		table.AddRow(rt.Method, rt.Path, rt.Description)
	}
	return output.PrintTable(p.Writer(), table)
}
