// Runs show command.
package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// auditView is the JSON shape for one audit entry.
type auditView struct {
	Seq    int    `json:"seq"`
	Row    string `json:"row"`
	Col    string `json:"col"`
	Action string `json:"action"`
	Before int64  `json:"before"`
	After  *int64 `json:"after"`
}

func newRunsShowCmd() *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one recorded run",
		Long: `Print the full record of one run. With --audit the per-cell audit
entries are included; they carry the pre-suppression counts and are for
review inside the environment only, never for release alongside the
output table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd, args[0], audit)
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "include per-cell audit entries")
	return cmd
}

func runRunsShow(cmd *cobra.Command, runID string, audit bool) error {
	reg, err := openRegister()
	if err != nil {
		return err
	}
	defer reg.Close()

	run, err := reg.Get(runID)
	if err != nil {
		return err
	}

	var entries []types.AuditEntry
	if audit {
		entries, err = reg.AuditEntries(runID)
		if err != nil {
			return sysErr(fmt.Errorf("load audit entries: %w", err))
		}
	}

	if flags.jsonMode {
		view := struct {
			runView
			Audit []auditView `json:"audit,omitempty"`
		}{runView: newRunView(*run)}
		for i, e := range entries {
			view.Audit = append(view.Audit, auditView{
				Seq:    i,
				Row:    e.Coord.Row,
				Col:    e.Coord.Col,
				Action: e.Action,
				Before: e.Before,
				After:  e.After,
			})
		}
		return printJSON(cmd, view)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Run:", run.ID)
	fmt.Fprintln(out, "Created:", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintln(out, "Command:", run.Command)
	fmt.Fprintln(out, "Input:", run.Input)
	if run.Output != "" {
		fmt.Fprintln(out, "Output:", run.Output)
	}
	fmt.Fprintln(out, "Table:", run.Table)
	fmt.Fprintln(out, "Outcome:", run.Outcome)
	if run.Reason != "" {
		fmt.Fprintln(out, "Reason:", run.Reason)
	}
	fmt.Fprintf(out, "Rules: threshold %d, base %d, symbol %q, consistency %t, passes %d\n",
		run.Rules.MinThreshold, run.Rules.RoundingBase, run.Rules.SuppressionSymbol,
		run.Rules.EnforceMarginalConsistency, run.Rules.MaxComplementaryPasses)
	fmt.Fprintln(out, "Cells:", run.Cells)
	fmt.Fprintln(out, "Rounded:", run.Rounded)
	fmt.Fprintln(out, "Suppressed:", run.Suppressed)

	if !audit {
		return nil
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tROW\tCOL\tACTION\tBEFORE\tAFTER")
	for i, e := range entries {
		after := "-"
		if e.After != nil {
			after = fmt.Sprintf("%d", *e.After)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			i, e.Coord.Row, e.Coord.Col, e.Action, e.Before, after)
	}
	return w.Flush()
}
