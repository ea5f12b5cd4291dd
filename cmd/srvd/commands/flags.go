package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/srvkit/cmd/srvd/cmdutil"
	"github.com/marmos91/srvkit/pkg/flags"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "List the flags of a running server",
	Long: `List every flag registered by a running srvkit server with its
current value and where that value came from (flag, env, config or default).`,
	RunE: runFlags,
}

// FlagList is a list of remote flags for table rendering.
type FlagList []flags.Info

// Headers implements TableRenderer.
func (fl FlagList) Headers() []string {
	return []string{"NAME", "VALUE", "SOURCE", "DEFAULT"}
}

// Rows implements TableRenderer.
func (fl FlagList) Rows() [][]string {
	rows := make([][]string, 0, len(fl))
	for _, f := range fl {
		rows = append(rows, []string{f.Name, f.Value, f.Source.String(), f.Default})
	}
	return rows
}

func runFlags(cmd *cobra.Command, args []string) error {
	client := cmdutil.GetClient()
	ctx, cancel := cmdutil.Context()
	defer cancel()

	list, err := client.Flags(ctx)
	if err != nil {
		return fmt.Errorf("failed to list flags: %w", err)
	}
	return cmdutil.PrintOutput(list, FlagList(list))
}
