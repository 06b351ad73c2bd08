// Package sdc provides the public API for statistical disclosure control
// of aggregated count tables. It exposes the engine entry points while
// keeping the pipeline stages internal.
//
// Example:
//
//	out, audit, err := sdc.Apply(ctx, table, types.RuleSet{
//	    MinThreshold:               5,
//	    RoundingBase:               5,
//	    SuppressionSymbol:          "~",
//	    EnforceMarginalConsistency: true,
//	    MaxComplementaryPasses:     10,
//	})
//
// Apply never mutates its input and returns either a fully transformed
// table plus its audit record, or an error and no table at all. The audit
// record carries pre-suppression counts and must never be published with
// the table.
package sdc

import (
	"context"

	"github.com/bhfdschds/hds-functions/internal/engine"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

// Version is the released version of the module and its CLI.
const Version = "0.1.0"

// Options tunes execution without changing the outcome.
type Options = engine.Options

// Apply runs classification, rounding, primary suppression, and
// complementary suppression over a clone of t under the given rules.
// Returns an error wrapping types.ErrInvalidRuleSet, types.ErrInvalidTable,
// or types.ErrDisclosureRiskUnresolved on failure.
func Apply(ctx context.Context, t *types.Table, rules types.RuleSet) (*types.Table, *types.AuditRecord, error) {
	return engine.Apply(ctx, t, rules)
}

// ApplyWithOptions is Apply with an explicit worker pool size for the
// per-cell stages.
func ApplyWithOptions(ctx context.Context, t *types.Table, rules types.RuleSet, opts Options) (*types.Table, *types.AuditRecord, error) {
	return engine.ApplyWithOptions(ctx, t, rules, opts)
}
