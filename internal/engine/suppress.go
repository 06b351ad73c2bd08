package engine

import "github.com/bhfdschds/hds-functions/pkg/types"

// SuppressPrimary masks every unsafe cell. The raw count survives only in
// the audit record; the output cell carries no value at all.
func SuppressPrimary(t *types.Table, rules types.RuleSet) {
	for _, cell := range t.Cells() {
		if cell.Class == types.ClassUnsafe {
			cell.Suppressed = true
			cell.Value = nil
		}
	}
}
