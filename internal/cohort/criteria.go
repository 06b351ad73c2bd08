// Package cohort builds inclusion flowcharts: ordered criteria applied
// cumulatively to cohort records, producing the step-down count table
// that goes through disclosure control before release.
package cohort

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidCriteria = errors.New("invalid criteria")
	ErrInvalidCohort   = errors.New("invalid cohort")
	ErrUnknownColumn   = errors.New("unknown column")
)

// OriginalTableRow labels the flowchart row counting the unfiltered cohort.
const OriginalTableRow = "original_table"

// Criterion is one inclusion step: a row label and a predicate expression
// over the cohort columns, e.g. "age >= 18" or "person_id is not null".
type Criterion struct {
	Name string `yaml:"name" json:"name"`
	Expr string `yaml:"expr" json:"expr"`
}

// LoadCriteria reads an ordered criteria list from YAML:
//
//	- name: age_over_18
//	  expr: age >= 18
//	- name: in_window
//	  expr: event_date <= index_date + 6 weeks
func LoadCriteria(r io.Reader) ([]Criterion, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading criteria: %w", err)
	}
	var criteria []Criterion
	if err := yaml.Unmarshal(data, &criteria); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}
	if err := ValidateCriteria(criteria); err != nil {
		return nil, err
	}
	return criteria, nil
}

// ValidateCriteria checks names (non-empty, unique, not the reserved
// original-table label) and parses every expression.
func ValidateCriteria(criteria []Criterion) error {
	if len(criteria) == 0 {
		return fmt.Errorf("%w: no criteria", ErrInvalidCriteria)
	}
	seen := make(map[string]bool, len(criteria))
	for _, c := range criteria {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("%w: criterion with empty name", ErrInvalidCriteria)
		}
		if c.Name == OriginalTableRow {
			return fmt.Errorf("%w: criterion name %q is reserved", ErrInvalidCriteria, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate criterion name %q", ErrInvalidCriteria, c.Name)
		}
		seen[c.Name] = true
		if _, err := parsePredicate(c.Expr); err != nil {
			return fmt.Errorf("criterion %q: %w", c.Name, err)
		}
	}
	return nil
}
