// Check command: validate a table against the rules without releasing it.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/internal/engine"
)

// checkOptions holds the check command's flag values.
type checkOptions struct {
	rules         ruleFlags
	tableName     string
	marginalLabel string
	cleanLabels   bool
}

// checkSummary is the check command's --json output.
type checkSummary struct {
	Table     string `json:"table"`
	Cells     int    `json:"cells"`
	Data      int    `json:"data"`
	Marginals int    `json:"marginals"`
	Safe      int    `json:"safe"`
	Unsafe    int    `json:"unsafe"`
	Zeros     int    `json:"structural_zeros"`
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check INPUT",
		Short: "Validate a count table and report its classification",
		Long: `Read a table, validate it against the configured rules, and report how
many cells are safe, unsafe, or structurally zero. Nothing is written and
nothing is recorded; unsafe counts here are the cells apply would suppress.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args[0], opts)
		},
	}

	opts.rules.register(cmd)
	cmd.Flags().StringVar(&opts.tableName, "table", "", "table name (default: input file stem)")
	cmd.Flags().StringVar(&opts.marginalLabel, "marginal-label", "", "label marking totals rows/columns in CSV input (overrides marginal_label)")
	cmd.Flags().BoolVar(&opts.cleanLabels, "clean-labels", false, "normalize labels to snake_case before processing")
	return cmd
}

func runCheck(cmd *cobra.Command, input string, opts checkOptions) error {
	rules, err := opts.rules.resolve(cmd)
	if err != nil {
		return err
	}
	marginalLabel := resolveMarginalLabel(cmd, opts.marginalLabel)

	tbl, err := readTable(input, opts.tableName, marginalLabel, opts.cleanLabels)
	if err != nil {
		return err
	}
	if err := tbl.Validate(); err != nil {
		return err
	}

	engine.Classify(tbl, rules)
	c := tbl.Counts()

	if flags.jsonMode {
		return printJSON(cmd, checkSummary{
			Table:     tbl.Name,
			Cells:     c.Cells,
			Data:      c.Data,
			Marginals: c.Marginals,
			Safe:      c.Safe,
			Unsafe:    c.Unsafe,
			Zeros:     c.Zeros,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Table:", tbl.Name)
	fmt.Fprintf(out, "Cells: %d (%d data, %d marginals)\n", c.Cells, c.Data, c.Marginals)
	fmt.Fprintf(out, "Safe: %d\n", c.Safe)
	fmt.Fprintf(out, "Unsafe: %d\n", c.Unsafe)
	fmt.Fprintf(out, "Structural zeros: %d\n", c.Zeros)
	return nil
}
