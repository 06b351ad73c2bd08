// Runs list command.
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRunsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of runs (0 = all)")
	return cmd
}

func runRunsList(cmd *cobra.Command, limit int) error {
	reg, err := openRegister()
	if err != nil {
		return err
	}
	defer reg.Close()

	runs, err := reg.List(limit)
	if err != nil {
		return sysErr(fmt.Errorf("list runs: %w", err))
	}

	if flags.jsonMode {
		views := make([]runView, len(runs))
		for i, r := range runs {
			views[i] = newRunView(r)
		}
		return printJSON(cmd, views)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}

	// Run IDs print in full: UUIDv7 values share their leading timestamp
	// bits, so a truncated prefix would not identify a run.
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tCOMMAND\tTABLE\tOUTCOME\tSUPPRESSED\tROUNDED")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\n",
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.Command,
			r.Table,
			r.Outcome,
			r.Suppressed,
			r.Rounded,
		)
	}
	if err := w.Flush(); err != nil {
		return sysErr(err)
	}
	fmt.Fprintf(out, "Total: %d run(s)\n", len(runs))
	return nil
}
