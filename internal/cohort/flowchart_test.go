package cohort

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhfdschds/hds-functions/pkg/sdc"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

const cohortCSV = `person_id,age,sex,index_date,event_date
p1,34,F,2020-01-01,2020-01-15
p1,34,F,2020-01-01,2020-05-01
p2,17,M,2020-01-01,2020-01-20
p3,40,F,2020-02-01,2020-02-10
p4,51,M,2020-03-01,
,29,F,2020-01-01,2020-01-02
`

func cohortCriteria(t *testing.T) []Criterion {
	t.Helper()
	criteria, err := LoadCriteria(strings.NewReader(`
- name: has_person_id
  expr: person_id is not null
- name: adult
  expr: age >= 18
- name: event_recorded
  expr: event_date is not null
- name: event_in_window
  expr: event_date <= index_date + 6 weeks
`))
	require.NoError(t, err)
	return criteria
}

func TestLoadRecords(t *testing.T) {
	header, records, err := LoadRecords(strings.NewReader(cohortCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"person_id", "age", "sex", "index_date", "event_date"}, header)
	require.Len(t, records, 6)
	assert.Equal(t, "p3", records[3]["person_id"])
	assert.Equal(t, "", records[4]["event_date"])
}

func TestLoadRecordsErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty file", ""},
		{"duplicate column", "person_id,age,person_id\np1,34,p1\n"},
		{"ragged row", "person_id,age\np1,34,extra\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadRecords(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, ErrInvalidCohort)
		})
	}
}

func TestBuildFlowchart(t *testing.T) {
	header, records, err := LoadRecords(strings.NewReader(cohortCSV))
	require.NoError(t, err)

	tbl, err := BuildFlowchart(header, records, cohortCriteria(t), "person_id")
	require.NoError(t, err)

	assert.Equal(t, []string{
		OriginalTableRow, "has_person_id", "adult", "event_recorded", "event_in_window",
	}, tbl.RowOrder())
	assert.Equal(t, []string{ColRows, ColDistinctIDs}, tbl.ColOrder())

	want := map[string][2]int64{
		OriginalTableRow:  {6, 4},
		"has_person_id":   {5, 4},
		"adult":           {4, 3},
		"event_recorded":  {3, 2},
		"event_in_window": {2, 2},
	}
	for label, counts := range want {
		rows, ok := tbl.Cell(label, ColRows)
		require.True(t, ok, label)
		assert.Equal(t, counts[0], rows.Raw, "%s rows", label)

		ids, ok := tbl.Cell(label, ColDistinctIDs)
		require.True(t, ok, label)
		assert.Equal(t, counts[1], ids.Raw, "%s distinct ids", label)
	}
}

func TestBuildFlowchartErrors(t *testing.T) {
	header, records, err := LoadRecords(strings.NewReader(cohortCSV))
	require.NoError(t, err)
	criteria := cohortCriteria(t)

	t.Run("unknown person id column", func(t *testing.T) {
		_, err := BuildFlowchart(header, records, criteria, "pid")
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})

	t.Run("missing person id column", func(t *testing.T) {
		_, err := BuildFlowchart(header, records, criteria, "")
		assert.ErrorIs(t, err, ErrInvalidCohort)
	})

	t.Run("criterion on unknown column", func(t *testing.T) {
		bad := append([]Criterion{}, criteria...)
		bad = append(bad, Criterion{Name: "obese", Expr: "bmi >= 30"})
		_, err := BuildFlowchart(header, records, bad, "person_id")
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})

	t.Run("offset anchor on unknown column", func(t *testing.T) {
		bad := []Criterion{{Name: "late", Expr: "event_date >= enrolment_date + 1 week"}}
		_, err := BuildFlowchart(header, records, bad, "person_id")
		assert.ErrorIs(t, err, ErrUnknownColumn)
	})
}

// A flowchart is itself a count table, so it runs through disclosure
// control like any other output.
func TestFlowchartDisclosureControl(t *testing.T) {
	header, records, err := LoadRecords(strings.NewReader(cohortCSV))
	require.NoError(t, err)
	tbl, err := BuildFlowchart(header, records, cohortCriteria(t), "person_id")
	require.NoError(t, err)

	rules := types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               1,
		SuppressionSymbol:          "<5",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     3,
	}
	out, audit, err := sdc.Apply(context.Background(), tbl, rules)
	require.NoError(t, err)

	display := func(row, col string) string {
		cell, ok := out.Cell(row, col)
		require.True(t, ok)
		return cell.Display(rules.SuppressionSymbol)
	}
	assert.Equal(t, "6", display(OriginalTableRow, ColRows))
	assert.Equal(t, "5", display("has_person_id", ColRows))
	assert.Equal(t, "<5", display("adult", ColRows))
	assert.Equal(t, "<5", display(OriginalTableRow, ColDistinctIDs))
	assert.Equal(t, "<5", display("event_in_window", ColDistinctIDs))

	// Counts below the threshold: three in n_row, all five in n_distinct_id.
	assert.Equal(t, 8, audit.Len())
	for _, entry := range audit.Entries() {
		assert.Equal(t, types.ActionSuppressedPrimary, entry.Action)
	}
}
