// Package stats implements the "srvd stats" commands, which read the final
// snapshots a server exported with -stats.export.
package stats

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/pkg/stats"
	"github.com/marmos91/srvkit/pkg/stats/export"
)

// Cmd is the parent command for exported snapshots.
var Cmd = &cobra.Command{
	Use:   "stats",
	Short: "Inspect exported stats snapshots",
	Long: `Read the final stats snapshots written by servers started with
-stats.export=file://... or -stats.export=badger://...`,
}

func init() {
	Cmd.AddCommand(historyCmd)
	Cmd.AddCommand(showCmd)
}

// badgerDir accepts either a plain directory or a badger:// target.
func badgerDir(s string) (string, error) {
	if export.Scheme(s) != "badger" {
		return s, nil
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", err
	}
	if u.Host != "" {
		return u.Host + u.Path, nil
	}
	return u.Path, nil
}

// snapshotTable renders the metrics of one snapshot.
type snapshotTable []stats.Entry

// Headers implements TableRenderer.
func (t snapshotTable) Headers() []string {
	return []string{"NAME", "KIND", "VALUE", "AVG", "P99", "MAX"}
}

// Rows implements TableRenderer.
func (t snapshotTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		avg, p99, maxV := "-", "-", "-"
		if h := e.Histogram; h != nil {
			avg, p99, maxV = formatFloat(h.Avg), formatFloat(h.P99), formatFloat(h.Max)
		}
		rows = append(rows, []string{e.Name, e.Kind.String(), formatFloat(e.Value), avg, p99, maxV})
	}
	return rows
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func describe(rec export.Record) [][2]string {
	return [][2]string{
		{"Server", rec.Server},
		{"Instance", rec.InstanceID},
		{"Exit code", fmt.Sprint(rec.ExitCode)},
		{"Taken", rec.Snapshot.Taken.Format("2006-01-02 15:04:05.000 MST")},
	}
}
