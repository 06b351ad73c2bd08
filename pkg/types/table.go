package types

import "fmt"

// Table is a rectangular grid of non-negative counts over two categorical
// dimensions, plus optional marginal totals. Row and column labels are
// ordered as declared; iteration is row-major with the totals row and
// totals column last, so identical tables always iterate identically.
//
// A one-dimensional table is represented as a single row. Marginals, when
// present, must equal the sum of the data cells they summarize; this is an
// input invariant checked by Validate, not something the engine repairs.
type Table struct {
	Name   string
	RowDim string
	ColDim string

	// RowLabels and ColLabels hold the data labels only; the totals
	// row/column is addressed by MarginalLabel.
	RowLabels []string
	ColLabels []string

	// MarginalLabel names the totals row and column, e.g. "total".
	// Empty until marginals are declared.
	MarginalLabel string

	// HasRowTotals reports a totals column of row sums; HasColTotals a
	// totals row of column sums. The grand total cell exists when both.
	HasRowTotals bool
	HasColTotals bool

	cells map[Coord]*Cell
}

// NewTable creates an empty table with the given dimensions and data
// labels. Labels must be non-empty and unique within their dimension.
// Returns an error wrapping ErrInvalidTable otherwise.
func NewTable(name, rowDim, colDim string, rowLabels, colLabels []string) (*Table, error) {
	if len(rowLabels) == 0 {
		return nil, fmt.Errorf("%w: no row labels", ErrInvalidTable)
	}
	if len(colLabels) == 0 {
		return nil, fmt.Errorf("%w: no column labels", ErrInvalidTable)
	}
	if err := checkLabels("row", rowLabels); err != nil {
		return nil, err
	}
	if err := checkLabels("column", colLabels); err != nil {
		return nil, err
	}

	return &Table{
		Name:      name,
		RowDim:    rowDim,
		ColDim:    colDim,
		RowLabels: append([]string(nil), rowLabels...),
		ColLabels: append([]string(nil), colLabels...),
		cells:     make(map[Coord]*Cell, len(rowLabels)*len(colLabels)),
	}, nil
}

// checkLabels rejects empty and duplicate labels within one dimension.
func checkLabels(dim string, labels []string) error {
	seen := make(map[string]bool, len(labels))
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("%w: empty %s label", ErrInvalidTable, dim)
		}
		if seen[l] {
			return fmt.Errorf("%w: duplicate %s label %q", ErrInvalidTable, dim, l)
		}
		seen[l] = true
	}
	return nil
}

// SetCount sets the raw count of a data cell. Returns a TableError for
// unknown labels or a negative count. Setting an existing cell overwrites
// its count.
func (t *Table) SetCount(row, col string, n int64) error {
	coord := Coord{Row: row, Col: col}
	if !contains(t.RowLabels, row) {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("unknown row label %q", row)}
	}
	if !contains(t.ColLabels, col) {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("unknown column label %q", col)}
	}
	if n < 0 {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("negative count %d", n)}
	}
	t.cells[coord] = &Cell{Coord: coord, Raw: n, Role: RoleData}
	return nil
}

// DeclareMarginals names the totals row/column without populating it.
// Callers that load tables whose totals are already present use this
// before SetMarginal; AddMarginals computes totals instead.
func (t *Table) DeclareMarginals(label string) error {
	if label == "" {
		return fmt.Errorf("%w: empty marginal label", ErrInvalidTable)
	}
	if contains(t.RowLabels, label) || contains(t.ColLabels, label) {
		return fmt.Errorf("%w: marginal label %q collides with a data label", ErrInvalidTable, label)
	}
	if t.MarginalLabel != "" && t.MarginalLabel != label {
		return fmt.Errorf("%w: marginal label already declared as %q", ErrInvalidTable, t.MarginalLabel)
	}
	t.MarginalLabel = label
	return nil
}

// SetMarginal sets a caller-supplied total. The coordinate must lie on the
// declared totals row or column; consistency with the data cells is checked
// by Validate, not here. Returns a TableError on a malformed coordinate or
// negative count.
func (t *Table) SetMarginal(row, col string, n int64) error {
	coord := Coord{Row: row, Col: col}
	if t.MarginalLabel == "" {
		return &TableError{Coord: coord, Reason: "marginals not declared"}
	}
	onRow := row == t.MarginalLabel
	onCol := col == t.MarginalLabel
	if !onRow && !onCol {
		return &TableError{Coord: coord, Reason: "not a marginal coordinate"}
	}
	if !onRow && !contains(t.RowLabels, row) {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("unknown row label %q", row)}
	}
	if !onCol && !contains(t.ColLabels, col) {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("unknown column label %q", col)}
	}
	if n < 0 {
		return &TableError{Coord: coord, Reason: fmt.Sprintf("negative count %d", n)}
	}
	t.cells[coord] = &Cell{Coord: coord, Raw: n, Role: RoleMarginal}
	if onCol && !onRow {
		t.HasRowTotals = true
	}
	if onRow && !onCol {
		t.HasColTotals = true
	}
	if onRow && onCol {
		t.HasRowTotals = true
		t.HasColTotals = true
	}
	return nil
}

// AddMarginals computes row totals, column totals, and the grand total
// from the data cells and stores them under the given label. Every data
// cell must be set first. Fails if marginals are already present.
func (t *Table) AddMarginals(label string) error {
	if t.HasRowTotals || t.HasColTotals {
		return fmt.Errorf("%w: marginals already present", ErrInvalidTable)
	}
	if err := t.DeclareMarginals(label); err != nil {
		return err
	}

	var grand int64
	for _, r := range t.RowLabels {
		var sum int64
		for _, c := range t.ColLabels {
			cell, ok := t.Cell(r, c)
			if !ok {
				return &TableError{Coord: Coord{Row: r, Col: c}, Reason: "missing data cell"}
			}
			sum += cell.Raw
		}
		if err := t.SetMarginal(r, label, sum); err != nil {
			return err
		}
		grand += sum
	}
	for _, c := range t.ColLabels {
		var sum int64
		for _, r := range t.RowLabels {
			cell, _ := t.Cell(r, c)
			sum += cell.Raw
		}
		if err := t.SetMarginal(label, c, sum); err != nil {
			return err
		}
	}
	return t.SetMarginal(label, label, grand)
}

// Cell returns the cell at (row, col) and whether it exists.
func (t *Table) Cell(row, col string) (*Cell, bool) {
	c, ok := t.cells[Coord{Row: row, Col: col}]
	return c, ok
}

// RowOrder returns the row labels in iteration order, including the totals
// row when present.
func (t *Table) RowOrder() []string {
	out := append([]string(nil), t.RowLabels...)
	if t.HasColTotals {
		out = append(out, t.MarginalLabel)
	}
	return out
}

// ColOrder returns the column labels in iteration order, including the
// totals column when present.
func (t *Table) ColOrder() []string {
	out := append([]string(nil), t.ColLabels...)
	if t.HasRowTotals {
		out = append(out, t.MarginalLabel)
	}
	return out
}

// Cells returns every cell in row-major iteration order. Missing cells are
// skipped; Validate reports them.
func (t *Table) Cells() []*Cell {
	out := make([]*Cell, 0, len(t.cells))
	for _, r := range t.RowOrder() {
		for _, c := range t.ColOrder() {
			if cell, ok := t.Cell(r, c); ok {
				out = append(out, cell)
			}
		}
	}
	return out
}

// Counts tallies cells by role and classification. The class and
// suppression tallies stay zero until an engine run annotates the cells.
type Counts struct {
	Cells      int
	Data       int
	Marginals  int
	Safe       int
	Unsafe     int
	Zeros      int
	Suppressed int
}

// Counts tallies the table's cells.
func (t *Table) Counts() Counts {
	var n Counts
	for _, cell := range t.Cells() {
		n.Cells++
		if cell.Role == RoleMarginal {
			n.Marginals++
		} else {
			n.Data++
		}
		switch cell.Class {
		case ClassSafe:
			n.Safe++
		case ClassUnsafe:
			n.Unsafe++
		case ClassStructuralZero:
			n.Zeros++
		}
		if cell.Suppressed {
			n.Suppressed++
		}
	}
	return n
}

// Clone returns a deep copy. The engine transforms a clone so the caller's
// table is never mutated.
func (t *Table) Clone() *Table {
	out := &Table{
		Name:          t.Name,
		RowDim:        t.RowDim,
		ColDim:        t.ColDim,
		RowLabels:     append([]string(nil), t.RowLabels...),
		ColLabels:     append([]string(nil), t.ColLabels...),
		MarginalLabel: t.MarginalLabel,
		HasRowTotals:  t.HasRowTotals,
		HasColTotals:  t.HasColTotals,
		cells:         make(map[Coord]*Cell, len(t.cells)),
	}
	for coord, cell := range t.cells {
		out.cells[coord] = cell.Clone()
	}
	return out
}

// Validate checks the structural invariants: every declared coordinate
// present exactly once (rectangular), no negative counts, and every
// marginal equal to the sum of the data cells it summarizes. Returns a
// TableError naming the first offending coordinate.
func (t *Table) Validate() error {
	for _, r := range t.RowOrder() {
		for _, c := range t.ColOrder() {
			cell, ok := t.Cell(r, c)
			if !ok {
				return &TableError{Coord: Coord{Row: r, Col: c}, Reason: "missing cell"}
			}
			if cell.Raw < 0 {
				return &TableError{Coord: cell.Coord, Reason: fmt.Sprintf("negative count %d", cell.Raw)}
			}
		}
	}

	if t.HasRowTotals {
		for _, r := range t.RowLabels {
			if err := t.checkMarginal(Coord{Row: r, Col: t.MarginalLabel}, t.rowSum(r)); err != nil {
				return err
			}
		}
	}
	if t.HasColTotals {
		for _, c := range t.ColLabels {
			if err := t.checkMarginal(Coord{Row: t.MarginalLabel, Col: c}, t.colSum(c)); err != nil {
				return err
			}
		}
	}
	if t.HasRowTotals && t.HasColTotals {
		var grand int64
		for _, r := range t.RowLabels {
			grand += t.rowSum(r)
		}
		if err := t.checkMarginal(Coord{Row: t.MarginalLabel, Col: t.MarginalLabel}, grand); err != nil {
			return err
		}
	}
	return nil
}

// checkMarginal verifies one marginal cell against the expected sum.
func (t *Table) checkMarginal(coord Coord, want int64) error {
	cell, ok := t.cells[coord]
	if !ok {
		return &TableError{Coord: coord, Reason: "missing marginal cell"}
	}
	if cell.Raw != want {
		return &TableError{
			Coord:  coord,
			Reason: fmt.Sprintf("marginal %d does not match constituent sum %d", cell.Raw, want),
		}
	}
	return nil
}

// rowSum sums the data cells of a row. Missing cells contribute zero;
// Validate reports them separately.
func (t *Table) rowSum(row string) int64 {
	var sum int64
	for _, c := range t.ColLabels {
		if cell, ok := t.Cell(row, c); ok {
			sum += cell.Raw
		}
	}
	return sum
}

// colSum sums the data cells of a column.
func (t *Table) colSum(col string) int64 {
	var sum int64
	for _, r := range t.RowLabels {
		if cell, ok := t.Cell(r, col); ok {
			sum += cell.Raw
		}
	}
	return sum
}

// contains reports whether labels includes l.
func contains(labels []string, l string) bool {
	for _, s := range labels {
		if s == l {
			return true
		}
	}
	return false
}
