package engine

import "github.com/bhfdschds/hds-functions/pkg/types"

// classifyCount maps a single count to its class. A zero count is a
// structural zero: the category combination does not occur, which is not
// confidential, so it is neither suppressed nor rounded beyond identity.
func classifyCount(n, minThreshold int64) string {
	switch {
	case n == 0:
		return types.ClassStructuralZero
	case n < minThreshold:
		return types.ClassUnsafe
	default:
		return types.ClassSafe
	}
}

// Classify assigns a class to every cell. Marginal cells are classified on
// their own raw value, exactly like data cells: a total of 9 over unsafe
// constituents is itself safe at a threshold of 5.
func Classify(t *types.Table, rules types.RuleSet) {
	for _, cell := range t.Cells() {
		classifyCell(cell, rules)
	}
}

func classifyCell(cell *types.Cell, rules types.RuleSet) {
	cell.Class = classifyCount(cell.Raw, rules.MinThreshold)
}
