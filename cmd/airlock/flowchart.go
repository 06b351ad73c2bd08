// Flowchart command: build a cohort inclusion flowchart, optionally released.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/internal/cohort"
	"github.com/bhfdschds/hds-functions/internal/register"
	"github.com/bhfdschds/hds-functions/pkg/sdc"
)

// flowchartOptions holds the flowchart command's flag values.
type flowchartOptions struct {
	rules    ruleFlags
	criteria string
	personID string
	output   string
	release  bool
}

func newFlowchartCmd() *cobra.Command {
	var opts flowchartOptions

	cmd := &cobra.Command{
		Use:   "flowchart COHORT_CSV",
		Short: "Build the inclusion flowchart for a cohort",
		Long: `Apply the criteria file cumulatively to the cohort and count, after each
step, the rows remaining and the distinct person identifiers among them.
The resulting table holds raw counts and stays inside the environment;
pass --release to run it through disclosure control and record the run in
the release register.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlowchart(cmd, args[0], opts)
		},
	}

	opts.rules.register(cmd)
	cmd.Flags().StringVar(&opts.criteria, "criteria", "", "criteria YAML file (required)")
	cmd.Flags().StringVar(&opts.personID, "person-id", "", "cohort column holding the person identifier (required)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "flowchart path (default: COHORT_CSV with _flowchart suffix)")
	cmd.Flags().BoolVar(&opts.release, "release", false, "apply disclosure control before writing and record the run")
	_ = cmd.MarkFlagRequired("criteria")
	_ = cmd.MarkFlagRequired("person-id")
	return cmd
}

func runFlowchart(cmd *cobra.Command, cohortPath string, opts flowchartOptions) error {
	criteria, err := loadCriteriaFile(opts.criteria)
	if err != nil {
		return err
	}

	f, err := os.Open(cohortPath)
	if err != nil {
		return fmt.Errorf("open cohort: %w", err)
	}
	header, records, err := cohort.LoadRecords(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read %s: %w", cohortPath, err)
	}

	tbl, err := cohort.BuildFlowchart(header, records, criteria, opts.personID)
	if err != nil {
		return err
	}

	output := opts.output
	if output == "" {
		ext := filepath.Ext(cohortPath)
		output = strings.TrimSuffix(cohortPath, ext) + "_flowchart.csv"
	}

	if !opts.release {
		if err := writeTable(output, tbl, ""); err != nil {
			return err
		}
		if flags.jsonMode {
			return printJSON(cmd, map[string]any{
				"output": output,
				"table":  tbl.Name,
				"steps":  len(tbl.RowLabels),
			})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Flowchart written to", output)
		fmt.Fprintf(out, "Steps: %d (raw counts; do not release without disclosure control)\n", len(tbl.RowLabels))
		return nil
	}

	rules, err := opts.rules.resolve(cmd)
	if err != nil {
		return err
	}
	reg, err := openRegister()
	if err != nil {
		return err
	}
	defer reg.Close()

	released, audit, err := sdc.Apply(cmd.Context(), tbl, rules)
	if err != nil {
		runID, recErr := reg.Record(register.Run{
			Command: "flowchart",
			Input:   cohortPath,
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

	if err := writeTable(output, released, rules.SuppressionSymbol); err != nil {
		return err
	}

	entries := audit.Entries()
	runID, err := reg.Record(register.Run{
		Command: "flowchart",
		Input:   cohortPath,
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
			Input:     cohortPath,
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
	fmt.Fprintf(out, "Rounded: %d\n", rounded)
	fmt.Fprintf(out, "Suppressed: %d (%d primary, %d complementary)\n",
		primary+secondary, primary, secondary)
	return nil
}

// loadCriteriaFile reads and validates a criteria YAML file.
func loadCriteriaFile(path string) ([]cohort.Criterion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open criteria: %w", err)
	}
	defer f.Close()

	criteria, err := cohort.LoadCriteria(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return criteria, nil
}
