// Config loading for the airlock CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bhfdschds/hds-functions/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileYAML = "config.yaml"

	// Config keys.
	cfgKeyDataDir       = "data_dir"
	cfgKeyMarginalLabel = "marginal_label"
	cfgKeyMinThreshold  = "rules.min_threshold"
	cfgKeyRoundingBase  = "rules.rounding_base"
	cfgKeySymbol        = "rules.suppression_symbol"
	cfgKeyConsistency   = "rules.enforce_marginal_consistency"
	cfgKeyMaxPasses     = "rules.max_complementary_passes"
)

// loadConfig reads config.yaml from the config directory using Viper. A
// missing file is not an error: rule values then have to come from flags,
// and commands that need them fail if they are absent. No rule carries a
// built-in default, so a missing config can never silently weaken the
// disclosure protection of a run.
func loadConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ruleFlags holds the per-command disclosure rule overrides. Flags beat
// config.yaml; a rule with neither source is an error, never a default.
type ruleFlags struct {
	minThreshold int64
	roundingBase int64
	symbol       string
	consistency  bool
	maxPasses    int
}

// register adds the rule flags to a command that runs the engine.
func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.minThreshold, "min-threshold", 0, "counts below this are unsafe (overrides rules.min_threshold)")
	cmd.Flags().Int64Var(&f.roundingBase, "rounding-base", 0, "round safe counts to this base, 1 disables (overrides rules.rounding_base)")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "rendering for suppressed cells (overrides rules.suppression_symbol)")
	cmd.Flags().BoolVar(&f.consistency, "marginal-consistency", false, "recompute totals from rounded cells (overrides rules.enforce_marginal_consistency)")
	cmd.Flags().IntVar(&f.maxPasses, "max-passes", 0, "complementary suppression pass budget (overrides rules.max_complementary_passes)")
}

// resolve assembles the rule set for this invocation: flag when passed,
// config.yaml value otherwise. Every rule must have an explicit source;
// a missing one is an error wrapping types.ErrInvalidRuleSet.
func (f *ruleFlags) resolve(cmd *cobra.Command) (types.RuleSet, error) {
	var rules types.RuleSet

	switch {
	case cmd.Flags().Changed("min-threshold"):
		rules.MinThreshold = f.minThreshold
	case cfg.IsSet(cfgKeyMinThreshold):
		rules.MinThreshold = cfg.GetInt64(cfgKeyMinThreshold)
	default:
		return rules, missingRule(cfgKeyMinThreshold, "--min-threshold")
	}

	switch {
	case cmd.Flags().Changed("rounding-base"):
		rules.RoundingBase = f.roundingBase
	case cfg.IsSet(cfgKeyRoundingBase):
		rules.RoundingBase = cfg.GetInt64(cfgKeyRoundingBase)
	default:
		return rules, missingRule(cfgKeyRoundingBase, "--rounding-base")
	}

	switch {
	case cmd.Flags().Changed("symbol"):
		rules.SuppressionSymbol = f.symbol
	case cfg.IsSet(cfgKeySymbol):
		rules.SuppressionSymbol = cfg.GetString(cfgKeySymbol)
	default:
		return rules, missingRule(cfgKeySymbol, "--symbol")
	}

	switch {
	case cmd.Flags().Changed("marginal-consistency"):
		rules.EnforceMarginalConsistency = f.consistency
	case cfg.IsSet(cfgKeyConsistency):
		rules.EnforceMarginalConsistency = cfg.GetBool(cfgKeyConsistency)
	default:
		return rules, missingRule(cfgKeyConsistency, "--marginal-consistency")
	}

	switch {
	case cmd.Flags().Changed("max-passes"):
		rules.MaxComplementaryPasses = f.maxPasses
	case cfg.IsSet(cfgKeyMaxPasses):
		rules.MaxComplementaryPasses = cfg.GetInt(cfgKeyMaxPasses)
	default:
		return rules, missingRule(cfgKeyMaxPasses, "--max-passes")
	}

	if err := rules.Validate(); err != nil {
		return rules, err
	}
	return rules, nil
}

// missingRule reports an unconfigured rule, naming both ways to supply it.
func missingRule(key, flag string) error {
	return fmt.Errorf("%w: %s is not configured (set it in config.yaml or pass %s)",
		types.ErrInvalidRuleSet, key, flag)
}

// resolveMarginalLabel returns the label marking totals rows/columns in
// input tables: the command's --marginal-label flag when passed, the
// config value otherwise. Empty means the input carries no totals.
func resolveMarginalLabel(cmd *cobra.Command, flagValue string) string {
	if cmd.Flags().Changed("marginal-label") {
		return flagValue
	}
	return cfg.GetString(cfgKeyMarginalLabel)
}
