// Shared helpers for airlock CLI commands.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhfdschds/hds-functions/internal/register"
	"github.com/bhfdschds/hds-functions/internal/tableio"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

// cliError carries the exit code chosen where a failure happened, so main
// can report it without commands calling os.Exit (which would make them
// untestable in-process).
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

// sysErr marks err as a system failure (exit 2). Errors without a marker
// are user errors (exit 1).
func sysErr(err error) error {
	return &cliError{code: exitSysError, err: err}
}

// exitCode returns the exit code carried by err, exitUserError otherwise.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ce *cliError
	if errors.As(err, &ce) {
		return ce.code
	}
	return exitUserError
}

// openRegister resolves the data directory and opens the release register
// in it. The caller must close the register.
func openRegister() (*register.Register, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, sysErr(fmt.Errorf("resolve data dir: %w", err))
	}
	reg, err := register.Open(dataDir)
	if err != nil {
		return nil, sysErr(fmt.Errorf("open register: %w", err))
	}
	return reg, nil
}

// readTable loads a counts table from path, as JSON when the extension is
// .json and as CSV otherwise. JSON documents carry their own name and
// marginal label; for CSV they come from the arguments.
func readTable(path, name, marginalLabel string, cleanLabels bool) (*types.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".json") {
		tbl, err := tableio.ReadJSON(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return tbl, nil
	}

	if name == "" {
		name = tableStem(path)
	}
	tbl, err := tableio.ReadCSV(f, tableio.Options{
		Name:          name,
		MarginalLabel: marginalLabel,
		CleanLabels:   cleanLabels,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return tbl, nil
}

// writeTable writes the released table to path atomically, as JSON when
// the extension is .json and as CSV otherwise.
func writeTable(path string, t *types.Table, symbol string) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = tableio.WriteJSONFile(path, t, symbol)
	} else {
		err = tableio.WriteCSVFile(path, t, symbol)
	}
	if err != nil {
		return sysErr(fmt.Errorf("write %s: %w", path, err))
	}
	return nil
}

// tableStem returns the file name without directory or extension, used as
// the default table name.
func tableStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// defaultOutputPath derives the released-table path from the input path:
// admissions.csv becomes admissions_released.csv.
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_released" + ext
}

// tallyAudit counts the audit entries by action.
func tallyAudit(entries []types.AuditEntry) (rounded, primary, secondary int) {
	for _, e := range entries {
		switch e.Action {
		case types.ActionRounded:
			rounded++
		case types.ActionSuppressedPrimary:
			primary++
		case types.ActionSuppressedSecondary:
			secondary++
		}
	}
	return rounded, primary, secondary
}

// printJSON writes v to the command's stdout as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return sysErr(fmt.Errorf("marshal JSON: %w", err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
