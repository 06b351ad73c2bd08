package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

// borderTable mixes every class: an unsafe cell, a structural zero, safe
// cells needing rounding, and full marginals.
//
//	       c1  c2  c3 | total
//	 r1     3  12   0 |  15
//	 r2    15   8  25 |  48
//	 total 18  20  25 |  63
func borderTable(t *testing.T) *types.Table {
	t.Helper()
	tbl, err := types.NewTable("admissions", "age", "region",
		[]string{"r1", "r2"}, []string{"c1", "c2", "c3"})
	require.NoError(t, err)
	require.NoError(t, tbl.SetCount("r1", "c1", 3))
	require.NoError(t, tbl.SetCount("r1", "c2", 12))
	require.NoError(t, tbl.SetCount("r1", "c3", 0))
	require.NoError(t, tbl.SetCount("r2", "c1", 15))
	require.NoError(t, tbl.SetCount("r2", "c2", 8))
	require.NoError(t, tbl.SetCount("r2", "c3", 25))
	require.NoError(t, tbl.AddMarginals("total"))
	return tbl
}

// displays renders every cell in iteration order.
func displays(t *types.Table, symbol string) []string {
	var out []string
	for _, cell := range t.Cells() {
		out = append(out, cell.Display(symbol))
	}
	return out
}

func TestApplyEndToEnd(t *testing.T) {
	tbl := borderTable(t)
	rules := types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               5,
		SuppressionSymbol:          "~",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     5,
	}

	out, audit, err := Apply(context.Background(), tbl, rules)
	require.NoError(t, err)
	require.NotNil(t, out)

	want := []string{
		"~", "10", "0", "~",
		"15", "10", "25", "50",
		"~", "~", "25", "~",
	}
	assert.Equal(t, want, displays(out, rules.SuppressionSymbol))

	// The audit names every changed cell, in iteration order.
	var actions []string
	for _, e := range audit.Entries() {
		actions = append(actions, e.Coord.String()+":"+e.Action)
	}
	assert.Equal(t, []string{
		"r1/c1:" + types.ActionSuppressedPrimary,
		"r1/c2:" + types.ActionRounded,
		"r1/total:" + types.ActionSuppressedSecondary,
		"r2/c2:" + types.ActionRounded,
		"r2/total:" + types.ActionRounded,
		"total/c1:" + types.ActionSuppressedSecondary,
		"total/c2:" + types.ActionSuppressedSecondary,
		"total/total:" + types.ActionSuppressedSecondary,
	}, actions)

	// Raw counts appear in the audit only.
	for _, e := range audit.Entries() {
		if e.Action != types.ActionRounded {
			assert.Nil(t, e.After)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	tbl := borderTable(t)
	rules := types.RuleSet{MinThreshold: 5, RoundingBase: 5, SuppressionSymbol: "~", MaxComplementaryPasses: 5}

	_, _, err := Apply(context.Background(), tbl, rules)
	require.NoError(t, err)

	for _, cell := range tbl.Cells() {
		assert.Equal(t, types.ClassUnknown, cell.Class)
		assert.Nil(t, cell.Value)
		assert.False(t, cell.Suppressed)
	}
}

func TestApplyDeterministic(t *testing.T) {
	rules := types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               5,
		SuppressionSymbol:          "~",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     5,
	}

	first, firstAudit, err := Apply(context.Background(), borderTable(t), rules)
	require.NoError(t, err)
	second, secondAudit, err := ApplyWithOptions(context.Background(), borderTable(t), rules, Options{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, displays(first, "~"), displays(second, "~"),
		"worker pool must not change the outcome")
	assert.Equal(t, firstAudit.Entries(), secondAudit.Entries())
}

func TestApplyAllZeroTableIsNoOp(t *testing.T) {
	tbl, err := types.NewTable("t", "r", "c", []string{"a", "b"}, []string{"x", "y"})
	require.NoError(t, err)
	for _, r := range []string{"a", "b"} {
		for _, c := range []string{"x", "y"} {
			require.NoError(t, tbl.SetCount(r, c, 0))
		}
	}
	require.NoError(t, tbl.AddMarginals("total"))

	rules := types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               5,
		SuppressionSymbol:          "~",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     5,
	}
	out, audit, err := Apply(context.Background(), tbl, rules)
	require.NoError(t, err)

	assert.Equal(t, 0, audit.Len(), "nothing changed, nothing audited")
	for _, d := range displays(out, "~") {
		assert.Equal(t, "0", d)
	}
}

func TestApplyIdempotentOnOwnOutput(t *testing.T) {
	tbl, err := types.NewTable("t", "cohort", "category", []string{"persons"}, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, tbl.SetCount("persons", "a", 12))
	require.NoError(t, tbl.SetCount("persons", "b", 17))
	require.NoError(t, tbl.DeclareMarginals("total"))
	require.NoError(t, tbl.SetMarginal("persons", "total", 29))

	rules := types.RuleSet{
		MinThreshold:               5,
		RoundingBase:               5,
		SuppressionSymbol:          "~",
		EnforceMarginalConsistency: true,
		MaxComplementaryPasses:     5,
	}
	out, _, err := Apply(context.Background(), tbl, rules)
	require.NoError(t, err)

	// Rebuild a table whose raw counts are the published values, then
	// re-run with the threshold disabled. Nothing may change.
	rerun, err := types.NewTable("t", "cohort", "category", []string{"persons"}, []string{"a", "b"})
	require.NoError(t, err)
	for _, c := range []string{"a", "b"} {
		cell, _ := out.Cell("persons", c)
		require.NoError(t, rerun.SetCount("persons", c, *cell.Value))
	}
	require.NoError(t, rerun.DeclareMarginals("total"))
	totalCell, _ := out.Cell("persons", "total")
	require.NoError(t, rerun.SetMarginal("persons", "total", *totalCell.Value))

	rules.MinThreshold = 1
	again, audit, err := Apply(context.Background(), rerun, rules)
	require.NoError(t, err)
	assert.Equal(t, displays(out, "~"), displays(again, "~"))
	assert.Equal(t, 0, audit.Len())
}

func TestApplyValidation(t *testing.T) {
	ctx := context.Background()
	goodRules := types.RuleSet{MinThreshold: 5, RoundingBase: 5, SuppressionSymbol: "~"}

	t.Run("invalid rule set", func(t *testing.T) {
		out, audit, err := Apply(ctx, borderTable(t), types.RuleSet{})
		assert.ErrorIs(t, err, types.ErrInvalidRuleSet)
		assert.Nil(t, out)
		assert.Nil(t, audit)
	})

	t.Run("nil table", func(t *testing.T) {
		_, _, err := Apply(ctx, nil, goodRules)
		assert.ErrorIs(t, err, types.ErrInvalidTable)
	})

	t.Run("missing cell", func(t *testing.T) {
		tbl, err := types.NewTable("t", "r", "c", []string{"a", "b"}, []string{"x"})
		require.NoError(t, err)
		require.NoError(t, tbl.SetCount("a", "x", 5))
		_, _, err = Apply(ctx, tbl, goodRules)
		assert.ErrorIs(t, err, types.ErrInvalidTable)
	})

	t.Run("inconsistent marginal names coordinate", func(t *testing.T) {
		tbl, err := types.NewTable("t", "r", "c", []string{"a"}, []string{"x", "y"})
		require.NoError(t, err)
		require.NoError(t, tbl.SetCount("a", "x", 5))
		require.NoError(t, tbl.SetCount("a", "y", 6))
		require.NoError(t, tbl.DeclareMarginals("total"))
		require.NoError(t, tbl.SetMarginal("a", "total", 12))

		_, _, err = Apply(ctx, tbl, goodRules)
		var terr *types.TableError
		require.ErrorAs(t, err, &terr)
		assert.Equal(t, types.Coord{Row: "a", Col: "total"}, terr.Coord)
	})
}

func TestApplyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rules := types.RuleSet{MinThreshold: 5, RoundingBase: 5, SuppressionSymbol: "~", MaxComplementaryPasses: 5}
	out, _, err := ApplyWithOptions(ctx, borderTable(t), rules, Options{Workers: 4})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, out, "no partial output on interruption")
}
