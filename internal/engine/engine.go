package engine

import (
	"context"
	"fmt"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// Options tunes the pipeline without changing its outcome.
type Options struct {
	// Workers sizes the cell worker pool for classification and rounding.
	// Values below 2 run those stages serially. Suppression is always
	// sequential; the published table is identical either way.
	Workers int
}

// Apply runs the full pipeline on a clone of t and returns the safe table
// with its audit record. The input table is never mutated. On any error
// there is no partial output: callers get a table only when every stage
// succeeded.
func Apply(ctx context.Context, t *types.Table, rules types.RuleSet) (*types.Table, *types.AuditRecord, error) {
	return ApplyWithOptions(ctx, t, rules, Options{})
}

// ApplyWithOptions is Apply with an explicit worker pool size.
func ApplyWithOptions(ctx context.Context, t *types.Table, rules types.RuleSet, opts Options) (*types.Table, *types.AuditRecord, error) {
	if err := rules.Validate(); err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, fmt.Errorf("%w: nil table", types.ErrInvalidTable)
	}
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}

	out := t.Clone()
	cells := out.Cells()

	if err := forEachCell(ctx, cells, opts.Workers, func(cell *types.Cell) {
		classifyCell(cell, rules)
	}); err != nil {
		return nil, nil, fmt.Errorf("classification interrupted: %w", err)
	}

	// Under marginal consistency the marginals wait for the data cells,
	// so only data cells go through the pool.
	if err := forEachCell(ctx, cells, opts.Workers, func(cell *types.Cell) {
		if cell.Role == types.RoleMarginal && rules.EnforceMarginalConsistency {
			return
		}
		roundCell(cell, rules)
	}); err != nil {
		return nil, nil, fmt.Errorf("rounding interrupted: %w", err)
	}
	if rules.EnforceMarginalConsistency {
		recomputeMarginals(out, rules)
	}

	SuppressPrimary(out, rules)
	if _, err := SuppressComplementary(ctx, out, rules); err != nil {
		return nil, nil, err
	}

	return out, BuildAudit(out), nil
}
