package engine

import "github.com/bhfdschds/hds-functions/pkg/types"

// roundToBase rounds n to the nearest multiple of base, exact halves away
// from zero. Counts are non-negative, so integer arithmetic suffices: 17
// at base 5 gives 15, 12 at base 8 gives 16, 3 at base 10 gives 0.
func roundToBase(n, base int64) int64 {
	if base == 1 {
		return n
	}
	return (n + base/2) / base * base
}

// Round publishes transformed values: safe cells are rounded to the base,
// structural zeros pass through as 0, unsafe cells stay absent for the
// suppressor. With EnforceMarginalConsistency the marginals are not rounded
// independently but recomputed from their constituents afterwards.
func Round(t *types.Table, rules types.RuleSet) {
	for _, cell := range t.Cells() {
		if cell.Role == types.RoleMarginal && rules.EnforceMarginalConsistency {
			continue
		}
		roundCell(cell, rules)
	}
	if rules.EnforceMarginalConsistency {
		recomputeMarginals(t, rules)
	}
}

func roundCell(cell *types.Cell, rules types.RuleSet) {
	switch cell.Class {
	case types.ClassSafe:
		cell.SetValue(roundToBase(cell.Raw, rules.RoundingBase))
	case types.ClassStructuralZero:
		cell.SetValue(0)
	}
}

// contribution is the value a cell feeds into the marginals above it: the
// published value when one exists, the raw count for unsafe cells. Unsafe
// raw counts keep the totals truthful; the recovery path this opens is
// closed by suppression, not by distorting the sum.
func contribution(cell *types.Cell) int64 {
	if cell.Value != nil {
		return *cell.Value
	}
	return cell.Raw
}

// recomputeMarginals settles each marginal as the sum of its constituents'
// contributions: row and column totals from the data cells, the grand
// total from the settled row totals. Each sum is re-classified, and
// re-rounded when it is not already a multiple of the base (only possible
// when an unsafe constituent contributed a raw count).
func recomputeMarginals(t *types.Table, rules types.RuleSet) {
	if t.HasRowTotals {
		for _, r := range t.RowLabels {
			var sum int64
			for _, c := range t.ColLabels {
				if cell, ok := t.Cell(r, c); ok {
					sum += contribution(cell)
				}
			}
			if m, ok := t.Cell(r, t.MarginalLabel); ok {
				settleMarginal(m, sum, rules)
			}
		}
	}
	if t.HasColTotals {
		for _, c := range t.ColLabels {
			var sum int64
			for _, r := range t.RowLabels {
				if cell, ok := t.Cell(r, c); ok {
					sum += contribution(cell)
				}
			}
			if m, ok := t.Cell(t.MarginalLabel, c); ok {
				settleMarginal(m, sum, rules)
			}
		}
	}
	if t.HasRowTotals && t.HasColTotals {
		var grand int64
		for _, r := range t.RowLabels {
			if cell, ok := t.Cell(r, t.MarginalLabel); ok {
				grand += contribution(cell)
			}
		}
		if m, ok := t.Cell(t.MarginalLabel, t.MarginalLabel); ok {
			settleMarginal(m, grand, rules)
		}
	}
}

// settleMarginal re-classifies a marginal on its recomputed sum. A sum
// inside the unsafe band leaves no published value and is handed to the
// primary suppressor; this can only happen when the rounding base exceeds
// the threshold or unsafe constituents pulled the sum down.
func settleMarginal(cell *types.Cell, sum int64, rules types.RuleSet) {
	cell.Class = classifyCount(sum, rules.MinThreshold)
	if cell.Class == types.ClassUnsafe {
		cell.Value = nil
		return
	}
	if sum%rules.RoundingBase != 0 {
		sum = roundToBase(sum, rules.RoundingBase)
	}
	cell.SetValue(sum)
}
