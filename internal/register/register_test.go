package register

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

func newTestRegister(t *testing.T) (*Register, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })
	return reg, dir
}

func sampleRules() types.RuleSet {
	return types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               5,
		SuppressionSymbol:          "~",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     3,
	}
}

func sampleRun(created time.Time) Run {
	return Run{
		CreatedAt: created,
		Command:   "apply",
		Input:     "admissions.csv",
		Output:    "admissions_released.csv",
		Table:     "admissions",
		Outcome:   OutcomeReleased,
		Rules:     sampleRules(),
		Cells:     12,
	}
}

func sampleEntries() []types.AuditEntry {
	after := int64(15)
	return []types.AuditEntry{
		{Coord: types.Coord{Row: "18-29", Col: "north"}, Action: types.ActionRounded, Before: 17, After: &after},
		{Coord: types.Coord{Row: "30-49", Col: "south"}, Action: types.ActionSuppressedPrimary, Before: 3},
		{Coord: types.Coord{Row: "30-49", Col: "total"}, Action: types.ActionSuppressedSecondary, Before: 20},
	}
}

func TestOpenCreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	reg, err := Open(dir)
	require.NoError(t, err)
	defer reg.Close()

	_, err = os.Stat(filepath.Join(dir, DBFile))
	assert.NoError(t, err)
}

func TestCloseIsIdempotent(t *testing.T) {
	reg, _ := newTestRegister(t)
	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())

	_, err := reg.Record(sampleRun(time.Now().UTC()), nil)
	assert.ErrorIs(t, err, ErrRegisterClosed)
	_, err = reg.List(0)
	assert.ErrorIs(t, err, ErrRegisterClosed)
	_, err = reg.Get("any")
	assert.ErrorIs(t, err, ErrRegisterClosed)
	_, err = reg.AuditEntries("any")
	assert.ErrorIs(t, err, ErrRegisterClosed)
}

func TestRecordAndGet(t *testing.T) {
	reg, _ := newTestRegister(t)

	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id, err := reg.Record(sampleRun(created), sampleEntries())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "apply", got.Command)
	assert.Equal(t, "admissions.csv", got.Input)
	assert.Equal(t, "admissions_released.csv", got.Output)
	assert.Equal(t, "admissions", got.Table)
	assert.Equal(t, OutcomeReleased, got.Outcome)
	assert.Equal(t, sampleRules(), got.Rules)
	assert.Equal(t, 12, got.Cells)

	// Derived from the entries, not from the caller's struct.
	assert.Equal(t, 2, got.Suppressed)
	assert.Equal(t, 1, got.Rounded)
}

func TestRecordRefusedRun(t *testing.T) {
	reg, _ := newTestRegister(t)

	run := sampleRun(time.Now().UTC())
	run.Outcome = OutcomeRefused
	run.Output = ""
	run.Reason = "disclosure risk unresolved: rows [persons]"

	id, err := reg.Record(run, nil)
	require.NoError(t, err)

	got, err := reg.Get(id)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRefused, got.Outcome)
	assert.Equal(t, run.Reason, got.Reason)
	assert.Zero(t, got.Suppressed)
	assert.Zero(t, got.Rounded)

	entries, err := reg.AuditEntries(id)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRecordValidation(t *testing.T) {
	reg, _ := newTestRegister(t)

	tests := []struct {
		name   string
		mutate func(*Run)
	}{
		{"missing command", func(r *Run) { r.Command = "" }},
		{"missing table", func(r *Run) { r.Table = "" }},
		{"unknown outcome", func(r *Run) { r.Outcome = "pending" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := sampleRun(time.Now().UTC())
			tt.mutate(&run)
			_, err := reg.Record(run, nil)
			assert.ErrorIs(t, err, ErrInvalidRun)
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	reg, _ := newTestRegister(t)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 3; i++ {
		run := sampleRun(base.Add(time.Duration(i) * time.Minute))
		run.Input = []string{"first.csv", "second.csv", "third.csv"}[i]
		id, err := reg.Record(run, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	runs, err := reg.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[0], runs[2].ID)
	assert.Equal(t, "third.csv", runs[0].Input)

	limited, err := reg.List(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[2], limited[0].ID)
	assert.Equal(t, ids[1], limited[1].ID)
}

func TestGetNotFound(t *testing.T) {
	reg, _ := newTestRegister(t)

	_, err := reg.Get("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = reg.AuditEntries("no-such-run")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestAuditEntriesRoundTrip(t *testing.T) {
	reg, _ := newTestRegister(t)

	id, err := reg.Record(sampleRun(time.Now().UTC()), sampleEntries())
	require.NoError(t, err)

	entries, err := reg.AuditEntries(id)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, types.Coord{Row: "18-29", Col: "north"}, entries[0].Coord)
	assert.Equal(t, types.ActionRounded, entries[0].Action)
	assert.Equal(t, int64(17), entries[0].Before)
	require.NotNil(t, entries[0].After)
	assert.Equal(t, int64(15), *entries[0].After)

	assert.Equal(t, types.ActionSuppressedPrimary, entries[1].Action)
	assert.Nil(t, entries[1].After)
	assert.Equal(t, types.ActionSuppressedSecondary, entries[2].Action)
}

func TestExportOmitsAuditDetail(t *testing.T) {
	reg, dir := newTestRegister(t)

	id, err := reg.Record(sampleRun(time.Now().UTC()), sampleEntries())
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, RunsFile))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &summary))
	assert.Equal(t, id, summary["run_id"])
	assert.Equal(t, OutcomeReleased, summary["outcome"])
	assert.Equal(t, float64(2), summary["suppressed"])
	assert.Equal(t, float64(1), summary["rounded"])

	rules, ok := summary["rules"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(5), rules["min_threshold"])

	// The export carries aggregate counts only. Cell-level detail, including
	// the raw values behind suppressed cells, must not leave the database.
	assert.NotContains(t, string(data), "row_label")
	assert.NotContains(t, string(data), types.ActionSuppressedPrimary)
	assert.NotContains(t, string(data), "18-29")
}

func TestReopenKeepsRuns(t *testing.T) {
	dir := t.TempDir()

	reg, err := Open(dir)
	require.NoError(t, err)
	id, err := reg.Record(sampleRun(time.Now().UTC()), sampleEntries())
	require.NoError(t, err)
	require.NoError(t, reg.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.List(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)

	entries, err := reopened.AuditEntries(id)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}
