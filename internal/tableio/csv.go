// Package tableio reads and writes count tables as CSV and JSON. Readers
// build the table model from grid-shaped files; writers render released
// tables with the suppression symbol in place of masked cells. File
// writes are atomic.
package tableio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// Options controls how a table is read.
type Options struct {
	// Name names the resulting table.
	Name string

	// ColDim names the column dimension; the row dimension comes from the
	// header's first field.
	ColDim string

	// MarginalLabel marks the totals row/column when it appears among the
	// labels, e.g. "total". Empty means the file carries no marginals.
	MarginalLabel string

	// CleanLabels normalizes the header labels before use.
	CleanLabels bool
}

// ReadCSV reads a grid-shaped CSV: the header holds the row dimension name
// followed by the column labels, each following record a row label followed
// by its counts. Returns an error wrapping types.ErrInvalidTable for ragged
// records, duplicate or marginal-colliding labels, and counts that are not
// non-negative integers.
func ReadCSV(r io.Reader, opts Options) (*types.Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		// encoding/csv enforces rectangular records for us.
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidTable, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: need a header and at least one row", types.ErrInvalidTable)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("%w: need at least one column label", types.ErrInvalidTable)
	}
	rowDim := header[0]
	colLabels := header[1:]
	if opts.CleanLabels {
		rowDim = CleanLabel(rowDim)
		colLabels = CleanLabels(colLabels)
	}

	dataCols, marginalCol, err := splitMarginal(colLabels, opts.MarginalLabel, "column")
	if err != nil {
		return nil, err
	}

	var dataRows []string
	var totalsRow []string
	for _, rec := range records[1:] {
		label := strings.TrimSpace(rec[0])
		if opts.MarginalLabel != "" && label == opts.MarginalLabel {
			if totalsRow != nil {
				return nil, fmt.Errorf("%w: duplicate totals row %q", types.ErrInvalidTable, label)
			}
			totalsRow = rec
			continue
		}
		dataRows = append(dataRows, label)
	}
	if len(dataRows) == 0 {
		return nil, fmt.Errorf("%w: no data rows", types.ErrInvalidTable)
	}

	tbl, err := types.NewTable(opts.Name, rowDim, opts.ColDim, dataRows, dataCols)
	if err != nil {
		return nil, err
	}
	if marginalCol || totalsRow != nil {
		if err := tbl.DeclareMarginals(opts.MarginalLabel); err != nil {
			return nil, err
		}
	}

	for _, rec := range records[1:] {
		label := strings.TrimSpace(rec[0])
		isTotals := opts.MarginalLabel != "" && label == opts.MarginalLabel
		for i, field := range rec[1:] {
			col := colLabels[i]
			n, err := parseCount(label, col, field)
			if err != nil {
				return nil, err
			}
			isMarginal := isTotals || (marginalCol && col == opts.MarginalLabel)
			if isMarginal {
				err = tbl.SetMarginal(label, col, n)
			} else {
				err = tbl.SetCount(label, col, n)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return tbl, nil
}

// splitMarginal removes the marginal label from a label list, reporting
// whether it was present. More than one occurrence is an error.
func splitMarginal(labels []string, marginal, dim string) ([]string, bool, error) {
	if marginal == "" {
		return labels, false, nil
	}
	var data []string
	found := false
	for _, l := range labels {
		if l == marginal {
			if found {
				return nil, false, fmt.Errorf("%w: duplicate totals %s %q", types.ErrInvalidTable, dim, marginal)
			}
			found = true
			continue
		}
		data = append(data, l)
	}
	return data, found, nil
}

// parseCount parses one cell value as a non-negative integer count.
func parseCount(row, col, field string) (int64, error) {
	field = strings.TrimSpace(field)
	if field == "" {
		return 0, &types.TableError{Coord: types.Coord{Row: row, Col: col}, Reason: "empty count"}
	}
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, &types.TableError{Coord: types.Coord{Row: row, Col: col}, Reason: fmt.Sprintf("count %q is not an integer", field)}
	}
	return n, nil
}

// WriteCSV renders a table in the grid layout ReadCSV accepts, with
// suppressed cells shown as the symbol.
func WriteCSV(w io.Writer, t *types.Table, symbol string) error {
	cw := csv.NewWriter(w)

	header := append([]string{t.RowDim}, t.ColOrder()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, r := range t.RowOrder() {
		rec := make([]string, 0, len(header))
		rec = append(rec, r)
		for _, c := range t.ColOrder() {
			cell, ok := t.Cell(r, c)
			if !ok {
				return &types.TableError{Coord: types.Coord{Row: r, Col: c}, Reason: "missing cell"}
			}
			rec = append(rec, cell.Display(symbol))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %q: %w", r, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile writes the rendered table to path atomically.
func WriteCSVFile(path string, t *types.Table, symbol string) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, t, symbol); err != nil {
		return err
	}
	return AtomicWriteFile(path, buf.Bytes())
}
