package engine

import "github.com/bhfdschds/hds-functions/pkg/types"

// BuildAudit walks the transformed table in iteration order and records
// every change: suppressions first by cause (primary for cells classified
// unsafe, secondary for cells masked to protect another), then roundings
// that altered the published value. Walking after the stages finish keeps
// the record order independent of worker scheduling.
func BuildAudit(t *types.Table) *types.AuditRecord {
	rec := &types.AuditRecord{}
	for _, cell := range t.Cells() {
		switch {
		case cell.Suppressed:
			action := types.ActionSuppressedSecondary
			if cell.Class == types.ClassUnsafe {
				action = types.ActionSuppressedPrimary
			}
			rec.Append(types.AuditEntry{Coord: cell.Coord, Action: action, Before: cell.Raw})
		case cell.Value != nil && *cell.Value != cell.Raw:
			after := *cell.Value
			rec.Append(types.AuditEntry{Coord: cell.Coord, Action: types.ActionRounded, Before: cell.Raw, After: &after})
		}
	}
	return rec
}
