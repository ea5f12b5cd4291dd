package commands

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/output"
	"github.com/marmos91/srvkit/pkg/admin/handlers"
)

var metricsFlat bool

var metricsCmd = &cobra.Command{
	Use:   "metrics [name...]",
	Short: "Show the metrics of a running server",
	Long: `Show the metrics of a running srvkit server. Counters also report the
change since the previous delta sample.

Examples:
  srvd metrics
  srvd metrics demo/requests lifecycle/main_ms
  srvd metrics --flat -o json`,
	RunE: runMetrics,
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsFlat, "flat", false, "Print the flat name to value map served at /admin/metrics.json")
}

// MetricList is a metrics report for table rendering.
type MetricList []handlers.MetricEntry

// Headers implements TableRenderer.
func (ml MetricList) Headers() []string {
	return []string{"NAME", "KIND", "VALUE", "DELTA", "P50", "P99"}
}

// Rows implements TableRenderer.
func (ml MetricList) Rows() [][]string {
	rows := make([][]string, 0, len(ml))
	for _, m := range ml {
		delta, p50, p99 := "-", "-", "-"
		if m.Delta != nil {
			delta = strconv.FormatInt(*m.Delta, 10)
		}
		if h := m.Histogram; h != nil {
			p50 = formatFloat(h.P50)
			p99 = formatFloat(h.P99)
		}
		rows = append(rows, []string{m.Name, m.Kind.String(), formatFloat(m.Value), delta, p50, p99})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func runMetrics(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()
	ctx, cancel := cmdutil.Context()
	defer cancel()

	if metricsFlat {
		values, err := client.MetricsJSON(ctx)
		if err != nil {
			return fmt.Errorf("failed to read metrics: %w", err)
		}
		table := output.NewTable("NAME", "VALUE")
		for _, name := range slices.Sorted(maps.Keys(values)) {
			table.AddRow(name, formatFloat(values[name]))
		}
		return cmdutil.PrintOutput(values, table)
	}

	report, err := client.Metrics(ctx, args...)
	if err != nil {
		return fmt.Errorf("failed to read metrics: %w", err)
	}
	return cmdutil.PrintOutput(report, MetricList(report.Metrics))
}
