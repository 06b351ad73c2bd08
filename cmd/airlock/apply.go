// Apply command: run disclosure control over a table and release it.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/internal/register"
	"github.com/bhfdschds/hds-functions/pkg/sdc"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

// applyOptions holds the apply command's flag values.
type applyOptions struct {
	rules         ruleFlags
	output        string
	tableName     string
	marginalLabel string
	cleanLabels   bool
	workers       int
}

// releaseSummary is the apply command's --json output.
type releaseSummary struct {
	RunID     string        `json:"run_id"`
	Input     string        `json:"input"`
	Output    string        `json:"output"`
	Table     string        `json:"table"`
	Outcome   string        `json:"outcome"`
	Cells     int           `json:"cells"`
	Rounded   int           `json:"rounded"`
	Primary   int           `json:"suppressed_primary"`
	Secondary int           `json:"suppressed_secondary"`
	Rules     types.RuleSet `json:"rules"`
}

func newApplyCmd() *cobra.Command {
	var opts applyOptions

	cmd := &cobra.Command{
		Use:   "apply INPUT",
		Short: "Apply disclosure control to a count table and write the released copy",
		Long: `Read an aggregated count table (CSV or JSON), suppress counts below the
minimum threshold, round the survivors, mask cells that would let a
suppressed count be recovered from published totals, and write the result
next to the input. Every run is recorded in the release register, refused
runs included. The input file is never modified.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, args[0], opts)
		},
	}

	opts.rules.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "released table path (default: INPUT with _released suffix)")
	cmd.Flags().StringVar(&opts.tableName, "table", "", "table name for the register (default: input file stem)")
	cmd.Flags().StringVar(&opts.marginalLabel, "marginal-label", "", "label marking totals rows/columns in CSV input (overrides marginal_label)")
	cmd.Flags().BoolVar(&opts.cleanLabels, "clean-labels", false, "normalize labels to snake_case before processing")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "worker pool size for per-cell stages (0 = serial)")
	return cmd
}

func runApply(cmd *cobra.Command, input string, opts applyOptions) error {
	rules, err := opts.rules.resolve(cmd)
	if err != nil {
		return err
	}
	marginalLabel := resolveMarginalLabel(cmd, opts.marginalLabel)

	tbl, err := readTable(input, opts.tableName, marginalLabel, opts.cleanLabels)
	if err != nil {
		return err
	}

	reg, err := openRegister()
	if err != nil {
		return err
	}
	defer reg.Close()

	released, audit, err := sdc.ApplyWithOptions(cmd.Context(), tbl, rules, sdc.Options{Workers: opts.workers})
	if err != nil {
		runID, recErr := reg.Record(register.Run{
			Command: "apply",
			Input:   input,
			Table:   tbl.Name,
			Outcome: register.OutcomeRefused,
			Reason:  err.Error(),
			Rules:   rules,
			Cells:   tbl.Counts().Cells,
		}, nil)
		if recErr != nil {
			return sysErr(fmt.Errorf("record refused run: %w", recErr))
		}
		return fmt.Errorf("release refused (run %s): %w", runID, err)
	}

	output := opts.output
	if output == "" {
		output = defaultOutputPath(input)
	}
	if err := writeTable(output, released, rules.SuppressionSymbol); err != nil {
		return err
	}

	entries := audit.Entries()
	runID, err := reg.Record(register.Run{
		Command: "apply",
		Input:   input,
		Output:  output,
		Table:   released.Name,
		Outcome: register.OutcomeReleased,
		Rules:   rules,
		Cells:   released.Counts().Cells,
	}, entries)
	if err != nil {
		return sysErr(fmt.Errorf("record released run: %w", err))
	}

	rounded, primary, secondary := tallyAudit(entries)
	if flags.jsonMode {
		return printJSON(cmd, releaseSummary{
			RunID:     runID,
			Input:     input,
			Output:    output,
			Table:     released.Name,
			Outcome:   register.OutcomeReleased,
			Cells:     released.Counts().Cells,
			Rounded:   rounded,
			Primary:   primary,
			Secondary: secondary,
			Rules:     rules,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Released", output)
	fmt.Fprintln(out, "Run:", runID)
	fmt.Fprintf(out, "Table: %s (%d cells)\n", released.Name, released.Counts().Cells)
	fmt.Fprintf(out, "Rounded: %d\n", rounded)
	fmt.Fprintf(out, "Suppressed: %d (%d primary, %d complementary)\n",
		primary+secondary, primary, secondary)
	return nil
}
