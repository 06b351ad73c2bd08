package types

// Audit actions. One entry is recorded per cell the engine changed.
const (
	ActionRounded             = "rounded"
	ActionSuppressedPrimary   = "suppressed_primary"
	ActionSuppressedSecondary = "suppressed_secondary"
)

// AuditEntry records one transformation: the cell, what was done, the raw
// count before, and the published value after (nil when withheld). Before
// holds the pre-suppression count, so audit entries must never accompany a
// released table.
type AuditEntry struct {
	Coord  Coord
	Action string
	Before int64
	After  *int64
}

// AuditRecord is the append-only, ordered record of every transformation
// one engine run applied. A fresh record is produced per run; the engine
// never retains one across invocations. It exists for review inside the
// controlled environment only.
type AuditRecord struct {
	entries []AuditEntry
}

// Append adds an entry. Entries are never modified or removed.
func (a *AuditRecord) Append(e AuditEntry) {
	a.entries = append(a.entries, e)
}

// Entries returns a copy of the entries in append order.
func (a *AuditRecord) Entries() []AuditEntry {
	return append([]AuditEntry(nil), a.entries...)
}

// Len returns the number of entries.
func (a *AuditRecord) Len() int { return len(a.entries) }
