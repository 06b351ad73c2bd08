package cohort

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// Record is one cohort row keyed by column name.
type Record map[string]string

// Flowchart measure columns.
const (
	ColRows        = "n_row"
	ColDistinctIDs = "n_distinct_id"
)

// LoadRecords reads a cohort CSV into records keyed by its header.
func LoadRecords(r io.Reader) ([]string, []Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidCohort, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%w: empty cohort file", ErrInvalidCohort)
	}

	header := rows[0]
	seen := make(map[string]bool, len(header))
	for _, h := range header {
		if seen[h] {
			return nil, nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidCohort, h)
		}
		seen[h] = true
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(header))
		for i, h := range header {
			rec[h] = row[i]
		}
		records = append(records, rec)
	}
	return header, records, nil
}

// BuildFlowchart applies the criteria cumulatively and counts, after each
// step, the rows remaining and the distinct person identifiers among them.
// The first row counts the unfiltered cohort. The result is a plain count
// table with no marginals, ready for disclosure control.
func BuildFlowchart(header []string, records []Record, criteria []Criterion, personID string) (*types.Table, error) {
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}
	cols := make(map[string]bool, len(header))
	for _, h := range header {
		cols[h] = true
	}
	if personID == "" {
		return nil, fmt.Errorf("%w: person id column required", ErrInvalidCohort)
	}
	if !cols[personID] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, personID)
	}

	preds := make([]*predicate, len(criteria))
	for i, c := range criteria {
		p, err := parsePredicate(c.Expr)
		if err != nil {
			return nil, fmt.Errorf("criterion %q: %w", c.Name, err)
		}
		for _, f := range p.fields() {
			if !cols[f] {
				return nil, fmt.Errorf("%w: %q in criterion %q", ErrUnknownColumn, f, c.Name)
			}
		}
		preds[i] = p
	}

	rowLabels := make([]string, 0, len(criteria)+1)
	rowLabels = append(rowLabels, OriginalTableRow)
	for _, c := range criteria {
		rowLabels = append(rowLabels, c.Name)
	}

	tbl, err := types.NewTable("inclusion_flowchart", "criterion", "measure",
		rowLabels, []string{ColRows, ColDistinctIDs})
	if err != nil {
		return nil, err
	}

	remaining := records
	if err := setStep(tbl, OriginalTableRow, remaining, personID); err != nil {
		return nil, err
	}
	for i, c := range criteria {
		var next []Record
		for _, rec := range remaining {
			if preds[i].eval(rec) {
				next = append(next, rec)
			}
		}
		remaining = next
		if err := setStep(tbl, c.Name, remaining, personID); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func setStep(tbl *types.Table, label string, recs []Record, personID string) error {
	ids := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		if id := strings.TrimSpace(rec[personID]); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := tbl.SetCount(label, ColRows, int64(len(recs))); err != nil {
		return err
	}
	return tbl.SetCount(label, ColDistinctIDs, int64(len(ids)))
}
