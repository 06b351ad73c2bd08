// Runs command group: inspect the release register.
package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/internal/register"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the release register",
		Long: `The release register records every disclosure-control run, released or
refused. Use "runs list" to see recent runs and "runs show" for the full
record of one run.`,
	}
	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

// runView is the JSON shape for a run, matching the runs.jsonl export.
type runView struct {
	RunID      string        `json:"run_id"`
	CreatedAt  string        `json:"created_at"`
	Command    string        `json:"command"`
	Input      string        `json:"input"`
	Output     string        `json:"output,omitempty"`
	Table      string        `json:"table"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Rules      types.RuleSet `json:"rules"`
	Cells      int           `json:"cells"`
	Suppressed int           `json:"suppressed"`
	Rounded    int           `json:"rounded"`
}

func newRunView(r register.Run) runView {
	return runView{
		RunID:      r.ID,
		CreatedAt:  r.CreatedAt.Format(time.RFC3339),
		Command:    r.Command,
		Input:      r.Input,
		Output:     r.Output,
		Table:      r.Table,
		Outcome:    r.Outcome,
		Reason:     r.Reason,
		Rules:      r.Rules,
		Cells:      r.Cells,
		Suppressed: r.Suppressed,
		Rounded:    r.Rounded,
	}
}
