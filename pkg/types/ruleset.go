package types

import "fmt"

// RuleSet holds the disclosure control parameters for one engine run.
// There are no defaults anywhere in the engine: a zero-value RuleSet fails
// Validate, because an absent threshold must be an error rather than a
// silently weaker policy.
type RuleSet struct {
	// MinThreshold is the smallest count publishable as-is. Counts in
	// (0, MinThreshold) are unsafe. Must be at least 1; 1 disables
	// threshold suppression (no integer can fall strictly between 0 and 1).
	MinThreshold int64 `json:"min_threshold" yaml:"min_threshold" mapstructure:"min_threshold"`

	// RoundingBase is the multiple safe counts are rounded to. Must be at
	// least 1; 1 makes rounding the identity.
	RoundingBase int64 `json:"rounding_base" yaml:"rounding_base" mapstructure:"rounding_base"`

	// SuppressionSymbol is the string rendered in place of suppressed
	// cells, e.g. "~" or "<5".
	SuppressionSymbol string `json:"suppression_symbol" yaml:"suppression_symbol" mapstructure:"suppression_symbol"`

	// EnforceMarginalConsistency recomputes marginals as the sum of their
	// rounded constituents instead of rounding them independently.
	EnforceMarginalConsistency bool `json:"enforce_marginal_consistency" yaml:"enforce_marginal_consistency" mapstructure:"enforce_marginal_consistency"`

	// MaxComplementaryPasses bounds the complementary suppression sweeps.
	// 0 means no complementary suppression is attempted: any row or column
	// needing it fails the run.
	MaxComplementaryPasses int `json:"max_complementary_passes" yaml:"max_complementary_passes" mapstructure:"max_complementary_passes"`
}

// Validate checks that the rule set is well-formed. Returns an error
// wrapping ErrInvalidRuleSet naming the first offending field.
func (r RuleSet) Validate() error {
	if r.MinThreshold < 1 {
		return fmt.Errorf("%w: min_threshold must be at least 1, got %d", ErrInvalidRuleSet, r.MinThreshold)
	}
	if r.RoundingBase < 1 {
		return fmt.Errorf("%w: rounding_base must be at least 1, got %d", ErrInvalidRuleSet, r.RoundingBase)
	}
	if r.SuppressionSymbol == "" {
		return fmt.Errorf("%w: suppression_symbol must not be empty", ErrInvalidRuleSet)
	}
	if r.MaxComplementaryPasses < 0 {
		return fmt.Errorf("%w: max_complementary_passes must not be negative, got %d", ErrInvalidRuleSet, r.MaxComplementaryPasses)
	}
	return nil
}
