package engine

import (
	"context"
	"fmt"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// line is one run of cells sharing a row or column, plus the marginal that
// summarizes them. The totals row and totals column are lines themselves,
// with the grand total as their marginal, so cascades through totals are
// handled by the same rule as data lines.
type line struct {
	isRow    bool
	label    string
	cells    []*types.Cell
	marginal *types.Cell
}

// atRisk reports whether the line permits exact recovery of a suppressed
// cell: a published marginal with exactly one suppressed member means the
// member is the marginal minus the published rest.
func (ln line) atRisk() bool {
	if ln.marginal == nil || ln.marginal.Suppressed {
		return false
	}
	suppressed := 0
	for _, cell := range ln.cells {
		if cell.Suppressed {
			suppressed++
		}
	}
	return suppressed == 1
}

// buildLines enumerates the table's lines in deterministic order: data
// rows, the totals row, data columns, the totals column.
func buildLines(t *types.Table) []line {
	var lines []line

	for _, r := range t.RowLabels {
		ln := line{isRow: true, label: r}
		for _, c := range t.ColLabels {
			if cell, ok := t.Cell(r, c); ok {
				ln.cells = append(ln.cells, cell)
			}
		}
		if t.HasRowTotals {
			ln.marginal, _ = t.Cell(r, t.MarginalLabel)
		}
		lines = append(lines, ln)
	}
	if t.HasColTotals {
		ln := line{isRow: true, label: t.MarginalLabel}
		for _, c := range t.ColLabels {
			if cell, ok := t.Cell(t.MarginalLabel, c); ok {
				ln.cells = append(ln.cells, cell)
			}
		}
		if t.HasRowTotals {
			ln.marginal, _ = t.Cell(t.MarginalLabel, t.MarginalLabel)
		}
		lines = append(lines, ln)
	}

	for _, c := range t.ColLabels {
		ln := line{label: c}
		for _, r := range t.RowLabels {
			if cell, ok := t.Cell(r, c); ok {
				ln.cells = append(ln.cells, cell)
			}
		}
		if t.HasColTotals {
			ln.marginal, _ = t.Cell(t.MarginalLabel, c)
		}
		lines = append(lines, ln)
	}
	if t.HasRowTotals {
		ln := line{label: t.MarginalLabel}
		for _, r := range t.RowLabels {
			if cell, ok := t.Cell(r, t.MarginalLabel); ok {
				ln.cells = append(ln.cells, cell)
			}
		}
		if t.HasColTotals {
			ln.marginal, _ = t.Cell(t.MarginalLabel, t.MarginalLabel)
		}
		lines = append(lines, ln)
	}

	return lines
}

// pickVictim chooses the complementary suppression for an at-risk line:
// the unsuppressed safe member with the smallest raw count, coordinate
// order breaking ties. Structural zeros are never candidates. With fewer
// than two candidates the line's marginal is suppressed instead: masking
// the equation removes the recovery path while keeping the one remaining
// observation published.
func pickVictim(ln line) *types.Cell {
	var best *types.Cell
	candidates := 0
	for _, cell := range ln.cells {
		if cell.Suppressed || cell.Class != types.ClassSafe {
			continue
		}
		candidates++
		if best == nil || cell.Raw < best.Raw ||
			(cell.Raw == best.Raw && cell.Coord.Less(best.Coord)) {
			best = cell
		}
	}
	if candidates < 2 {
		return ln.marginal
	}
	return best
}

// SuppressComplementary removes the recovery paths primary suppression
// leaves open. Each pass scans every line against the state the previous
// pass committed, picks one victim per at-risk line, and commits all picks
// atomically; a pass is never half-applied, and cancellation is honored
// only between passes. Returns the number of passes committed.
//
// A table still at risk after MaxComplementaryPasses passes fails with a
// RiskError naming the offending rows and columns; no output should be
// published from a table in that state.
func SuppressComplementary(ctx context.Context, t *types.Table, rules types.RuleSet) (int, error) {
	lines := buildLines(t)

	for pass := 0; ; pass++ {
		if err := ctx.Err(); err != nil {
			return pass, fmt.Errorf("complementary suppression interrupted: %w", err)
		}

		var atRisk []line
		for _, ln := range lines {
			if ln.atRisk() {
				atRisk = append(atRisk, ln)
			}
		}
		if len(atRisk) == 0 {
			return pass, nil
		}
		if pass == rules.MaxComplementaryPasses {
			return pass, riskError(atRisk)
		}

		// Evaluate every at-risk line against the pass-start state, then
		// commit. Two lines may pick the same victim; the map dedupes.
		chosen := make(map[types.Coord]*types.Cell)
		for _, ln := range atRisk {
			victim := pickVictim(ln)
			chosen[victim.Coord] = victim
		}
		for _, cell := range chosen {
			cell.Suppressed = true
			cell.Value = nil
		}
	}
}

// riskError lists the rows and columns still at risk, in table order.
func riskError(atRisk []line) error {
	var rows, cols []string
	for _, ln := range atRisk {
		if ln.isRow {
			rows = append(rows, ln.label)
		} else {
			cols = append(cols, ln.label)
		}
	}
	return &types.RiskError{Rows: rows, Cols: cols}
}
