package stats

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/internal/cli/output"
	"github.com/marmos91/srvkit/pkg/stats/export"
)

var (
	showDB     string
	showServer string
)

var showCmd = &cobra.Command{
	Use:   "show [file.json]",
	Short: "Show one exported snapshot",
	Long: `Show a snapshot written by -stats.export=file://..., or with --db the
newest snapshot in a badger database.

Examples:
  srvd stats show /var/lib/srvd/final.json
  srvd stats show --db /var/lib/srvd/stats --server srvd`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringVar(&showDB, "db", "", "Badger directory (or badger:// target) to read the newest snapshot from")
	showCmd.Flags().StringVar(&showServer, "server", "", "Server name to select with --db")
}

func runShow(cmd *cobra.Command, args []string) error {
	rec, err := loadRecord(args)
	if err != nil {
		return err
	}

	p, err := cmdutil.GetPrinter()
	if err != nil {
		return err
	}
	if p.Format() != output.FormatTable {
		return p.Print(rec)
	}
	if err := output.PrintKeyValues(p.Writer(), describe(rec)); err != nil {
		return err
	}
	p.Printf("\n")
	return output.PrintTable(p.Writer(), snapshotTable(rec.Snapshot.Entries()))
}

func loadRecord(args []string) (export.Record, error) {
	switch {
	case showDB != "" && len(args) > 0:
		return export.Record{}, errors.New("pass either a file or --db, not both")
	case len(args) == 1:
		return export.ReadFile(args[0])
	case showDB == "":
		return export.Record{}, errors.New("pass a snapshot file or --db")
	}

	dir, err := badgerDir(showDB)
	if err != nil {
		return export.Record{}, err
	}
	store, err := export.OpenBadger(dir, nil)
	if err != nil {
		return export.Record{}, err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := cmdutil.Context()
	defer cancel()

	rec, ok, err := store.Latest(ctx, showServer)
	if err != nil {
		return export.Record{}, err
	}
	if !ok {
		return export.Record{}, fmt.Errorf("no snapshots in %s", dir)
	}
	return rec, nil
}
