package stats

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/pkg/stats/export"
)

var (
	historyServer string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history <dir|badger:///dir>",
	Short: "List snapshots stored in a badger database",
	Long: `List the snapshots stored by -stats.export=badger:///dir, newest first.

Examples:
  srvd stats history /var/lib/srvd/stats
  srvd stats history badger:///var/lib/srvd/stats --server srvd --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyServer, "server", "", "Only list snapshots of this server name")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of snapshots (0 for all)")
}

// historyList renders one row per stored snapshot.
type historyList []export.Record

// Headers implements TableRenderer.
func (h historyList) Headers() []string {
	return []string{"TAKEN", "SERVER", "INSTANCE", "EXIT", "METRICS"}
}

// Rows implements TableRenderer.
func (h historyList) Rows() [][]string {
	rows := make([][]string, 0, len(h))
	for _, rec := range h {
		rows = append(rows, []string{
			rec.Snapshot.Taken.Format("2006-01-02 15:04:05"),
			rec.Server,
			rec.InstanceID,
			strconv.Itoa(rec.ExitCode),
			strconv.Itoa(len(rec.Snapshot.Entries())),
		})
	}
	return rows
}

func runHistory(cmd *cobra.Command, args []string) error {
	dir, err := badgerDir(args[0])
	if err != nil {
		return err
	}
	store, err := export.OpenBadger(dir, nil)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := cmdutil.Context()
	defer cancel()

	recs, err := store.List(ctx, historyServer, historyLimit)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}
	return cmdutil.PrintOutput(recs, historyList(recs))
}
