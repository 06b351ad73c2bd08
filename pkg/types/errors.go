package types

import (
	"errors"
	"fmt"
	"strings"
)

// Validation errors. Typed errors below wrap these sentinels so callers can
// match with errors.Is while still reading the offending coordinates.
var (
	ErrInvalidRuleSet = errors.New("invalid rule set")
	ErrInvalidTable   = errors.New("invalid table")
)

// Engine failure errors.
var (
	ErrDisclosureRiskUnresolved = errors.New("disclosure risk unresolved")
)

// TableError reports a structural violation of the table model at a
// specific cell.
type TableError struct {
	Coord  Coord
	Reason string
}

func (e *TableError) Error() string {
	return fmt.Sprintf("invalid table: %s at %s", e.Reason, e.Coord)
}

// Unwrap makes errors.Is(err, ErrInvalidTable) hold for every TableError.
func (e *TableError) Unwrap() error { return ErrInvalidTable }

// RiskError reports the rows and columns still permitting recovery of an
// unsafe cell after the complementary suppression pass budget is exhausted.
// The engine produces no output table when it returns a RiskError.
type RiskError struct {
	Rows []string
	Cols []string
}

func (e *RiskError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Rows) > 0 {
		parts = append(parts, fmt.Sprintf("rows [%s]", strings.Join(e.Rows, ", ")))
	}
	if len(e.Cols) > 0 {
		parts = append(parts, fmt.Sprintf("columns [%s]", strings.Join(e.Cols, ", ")))
	}
	if len(parts) == 0 {
		return "disclosure risk unresolved"
	}
	return "disclosure risk unresolved: " + strings.Join(parts, ", ")
}

// Unwrap makes errors.Is(err, ErrDisclosureRiskUnresolved) hold.
func (e *RiskError) Unwrap() error { return ErrDisclosureRiskUnresolved }
