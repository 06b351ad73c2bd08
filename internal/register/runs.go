package register

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bhfdschds/hds-functions/internal/tableio"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

// Run outcomes.
const (
	OutcomeReleased = "released"
	OutcomeRefused  = "refused"
)

// Run is one recorded disclosure-control run. Suppressed and Rounded are
// derived from the audit entries when the run is recorded.
type Run struct {
	ID         string
	CreatedAt  time.Time
	Command    string
	Input      string
	Output     string
	Table      string
	Outcome    string
	Reason     string
	Rules      types.RuleSet
	Cells      int
	Suppressed int
	Rounded    int
}

// runSummary is the runs.jsonl line format. It deliberately carries no audit
// detail: exported summaries may leave the environment, raw counts may not.
type runSummary struct {
	RunID      string        `json:"run_id"`
	CreatedAt  string        `json:"created_at"`
	Command    string        `json:"command"`
	Input      string        `json:"input"`
	Output     string        `json:"output,omitempty"`
	Table      string        `json:"table"`
	Outcome    string        `json:"outcome"`
	Reason     string        `json:"reason,omitempty"`
	Rules      types.RuleSet `json:"rules"`
	Cells      int           `json:"cells"`
	Suppressed int           `json:"suppressed"`
	Rounded    int           `json:"rounded"`
}

// Record validates and stores a run together with its audit entries, then
// re-exports runs.jsonl. The run and its entries commit in one transaction.
// Returns the generated run ID.
func (r *Register) Record(run Run, entries []types.AuditEntry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.open {
		return "", ErrRegisterClosed
	}
	if run.Command == "" {
		return "", fmt.Errorf("%w: command required", ErrInvalidRun)
	}
	if run.Table == "" {
		return "", fmt.Errorf("%w: table name required", ErrInvalidRun)
	}
	if run.Outcome != OutcomeReleased && run.Outcome != OutcomeRefused {
		return "", fmt.Errorf("%w: outcome %q", ErrInvalidRun, run.Outcome)
	}

	run.ID = newRunID()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.Suppressed = 0
	run.Rounded = 0
	for _, e := range entries {
		switch e.Action {
		case types.ActionRounded:
			run.Rounded++
		case types.ActionSuppressedPrimary, types.ActionSuppressedSecondary:
			run.Suppressed++
		}
	}

	rulesJSON, err := json.Marshal(run.Rules)
	if err != nil {
		return "", fmt.Errorf("encoding rules: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO runs (run_id, created_at, command, input, output, table_name,
            outcome, reason, rules, cells, suppressed, rounded)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.Format(time.RFC3339), run.Command, run.Input,
		run.Output, run.Table, run.Outcome, run.Reason, string(rulesJSON),
		run.Cells, run.Suppressed, run.Rounded,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	for seq, e := range entries {
		var after any
		if e.After != nil {
			after = *e.After
		}
		_, err = tx.Exec(
			`INSERT INTO audit_entries (run_id, seq, row_label, col_label, action,
                before_count, after_count)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			run.ID, seq, e.Coord.Row, e.Coord.Col, e.Action, e.Before, after,
		)
		if err != nil {
			return "", fmt.Errorf("inserting audit entry %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}

	if err := r.exportRuns(); err != nil {
		return "", fmt.Errorf("exporting %s: %w", RunsFile, err)
	}
	return run.ID, nil
}

// List returns runs newest first. A limit of zero or less returns all runs.
func (r *Register) List(limit int) ([]Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.open {
		return nil, ErrRegisterClosed
	}

	query := `SELECT run_id, created_at, command, input, output, table_name,
        outcome, reason, rules, cells, suppressed, rounded
        FROM runs ORDER BY created_at DESC, run_id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// Get retrieves one run by ID. Returns ErrRunNotFound if no run has it.
func (r *Register) Get(id string) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.open {
		return nil, ErrRegisterClosed
	}
	return r.getLocked(id)
}

func (r *Register) getLocked(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT run_id, created_at, command, input, output, table_name,
            outcome, reason, rules, cells, suppressed, rounded
         FROM runs WHERE run_id = ?`, id)
	run, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("getting run %s: %w", id, err)
	}
	return run, nil
}

// AuditEntries retrieves the audit detail for one run, in the order the
// entries were recorded. Returns ErrRunNotFound if the run does not exist.
func (r *Register) AuditEntries(runID string) ([]types.AuditEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.open {
		return nil, ErrRegisterClosed
	}
	if _, err := r.getLocked(runID); err != nil {
		return nil, err
	}

	rows, err := r.db.Query(
		`SELECT row_label, col_label, action, before_count, after_count
         FROM audit_entries WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	defer rows.Close()

	var entries []types.AuditEntry
	for rows.Next() {
		var e types.AuditEntry
		var after sql.NullInt64
		if err := rows.Scan(&e.Coord.Row, &e.Coord.Col, &e.Action, &e.Before, &after); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if after.Valid {
			v := after.Int64
			e.After = &v
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying audit entries: %w", err)
	}
	return entries, nil
}

// scanner lets scanRun hydrate from both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	var createdAt, rulesJSON string
	var output, reason sql.NullString
	err := sc.Scan(&run.ID, &createdAt, &run.Command, &run.Input, &output,
		&run.Table, &run.Outcome, &reason, &rulesJSON,
		&run.Cells, &run.Suppressed, &run.Rounded)
	if err != nil {
		return nil, err
	}
	run.Output = output.String
	run.Reason = reason.String
	run.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(rulesJSON), &run.Rules); err != nil {
		return nil, fmt.Errorf("decoding rules: %w", err)
	}
	return &run, nil
}

// exportRuns rewrites runs.jsonl from the runs table, oldest first, using an
// atomic replace so readers never see a partial file. Audit entries are
// intentionally absent from the export.
func (r *Register) exportRuns() error {
	rows, err := r.db.Query(
		`SELECT run_id, created_at, command, input, output, table_name,
            outcome, reason, rules, cells, suppressed, rounded
         FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var buf bytes.Buffer
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return fmt.Errorf("scanning run: %w", err)
		}
		line, err := json.Marshal(runSummary{
			RunID:      run.ID,
			CreatedAt:  run.CreatedAt.Format(time.RFC3339),
			Command:    run.Command,
			Input:      run.Input,
			Output:     run.Output,
			Table:      run.Table,
			Outcome:    run.Outcome,
			Reason:     run.Reason,
			Rules:      run.Rules,
			Cells:      run.Cells,
			Suppressed: run.Suppressed,
			Rounded:    run.Rounded,
		})
		if err != nil {
			return fmt.Errorf("encoding run summary: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("querying runs: %w", err)
	}

	return tableio.AtomicWriteFile(filepath.Join(r.dataDir, RunsFile), buf.Bytes())
}
