package register

// Schema DDL. The register accumulates across sessions, so every statement
// is idempotent and Open never drops existing data.
const (
	createRuns = `CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    command TEXT NOT NULL,
    input TEXT NOT NULL,
    output TEXT,
    table_name TEXT NOT NULL,
    outcome TEXT NOT NULL,
    reason TEXT,
    rules TEXT NOT NULL,
    cells INTEGER NOT NULL,
    suppressed INTEGER NOT NULL,
    rounded INTEGER NOT NULL
);`

	createAuditEntries = `CREATE TABLE IF NOT EXISTS audit_entries (
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    row_label TEXT NOT NULL,
    col_label TEXT NOT NULL,
    action TEXT NOT NULL,
    before_count INTEGER NOT NULL,
    after_count INTEGER,
    PRIMARY KEY (run_id, seq),
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
);`

	idxRunsCreated = `CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);`
	idxAuditRun    = `CREATE INDEX IF NOT EXISTS idx_audit_run ON audit_entries(run_id);`
)

// schemaDDL lists all statements in dependency order.
var schemaDDL = []string{
	createRuns,
	createAuditEntries,
	idxRunsCreated,
	idxAuditRun,
}
