// Init command: create the config file and the release register.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/bhfdschds/hds-functions/internal/register"
	"github.com/bhfdschds/hds-functions/pkg/types"
)

// starterConfig is the structure written to config.yaml by init.
type starterConfig struct {
	DataDir       string       `yaml:"data_dir,omitempty"`
	MarginalLabel string       `yaml:"marginal_label"`
	Rules         starterRules `yaml:"rules"`
}

type starterRules struct {
	MinThreshold               int64  `yaml:"min_threshold"`
	RoundingBase               int64  `yaml:"rounding_base"`
	SuppressionSymbol          string `yaml:"suppression_symbol"`
	EnforceMarginalConsistency bool   `yaml:"enforce_marginal_consistency"`
	MaxComplementaryPasses     int    `yaml:"max_complementary_passes"`
}

// defaultStarter returns the starter configuration: counts under 10 are
// unsafe, survivors round to base 5, suppressed cells render as
// "[:REDACTED:]". These are starting points for review, not recommendations;
// the disclosure rules of the hosting environment take precedence.
func defaultStarter() starterConfig {
	return starterConfig{
		MarginalLabel: "total",
		Rules: starterRules{
			MinThreshold:               10,
			RoundingBase:               5,
			SuppressionSymbol:          "[:REDACTED:]",
			EnforceMarginalConsistency: true,
			MaxComplementaryPasses:     10,
		},
	}
}

func newInitCmd() *cobra.Command {
	var (
		rules         ruleFlags
		marginalLabel string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize airlock configuration and the release register",
		Long: `Create the configuration directory with a starter config.yaml (kept
as-is when it already exists) and initialize the release register in the
data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd, rules, marginalLabel)
		},
	}

	rules.register(cmd)
	cmd.Flags().StringVar(&marginalLabel, "marginal-label", "", "label marking totals rows/columns in input tables")
	return cmd
}

func runInit(cmd *cobra.Command, rules ruleFlags, marginalLabel string) error {
	configDir, err := resolveConfigDir()
	if err != nil {
		return sysErr(fmt.Errorf("resolve config dir: %w", err))
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return sysErr(fmt.Errorf("create config directory: %w", err))
	}

	starter := defaultStarter()
	if flags.dataDir != "" {
		starter.DataDir = flags.dataDir
	}
	if cmd.Flags().Changed("marginal-label") {
		starter.MarginalLabel = marginalLabel
	}
	if cmd.Flags().Changed("min-threshold") {
		starter.Rules.MinThreshold = rules.minThreshold
	}
	if cmd.Flags().Changed("rounding-base") {
		starter.Rules.RoundingBase = rules.roundingBase
	}
	if cmd.Flags().Changed("symbol") {
		starter.Rules.SuppressionSymbol = rules.symbol
	}
	if cmd.Flags().Changed("marginal-consistency") {
		starter.Rules.EnforceMarginalConsistency = rules.consistency
	}
	if cmd.Flags().Changed("max-passes") {
		starter.Rules.MaxComplementaryPasses = rules.maxPasses
	}
	if err := starterRuleSet(starter.Rules).Validate(); err != nil {
		return err
	}

	configPath := filepath.Join(configDir, configFileYAML)
	created, err := writeConfigIfMissing(configPath, starter)
	if err != nil {
		return sysErr(fmt.Errorf("write config: %w", err))
	}

	dataDir, err := resolveDataDir()
	if err != nil {
		return sysErr(fmt.Errorf("resolve data dir: %w", err))
	}
	reg, err := register.Open(dataDir)
	if err != nil {
		return sysErr(fmt.Errorf("initialize register: %w", err))
	}
	if err := reg.Close(); err != nil {
		return sysErr(fmt.Errorf("finalize register: %w", err))
	}

	if flags.jsonMode {
		return printJSON(cmd, map[string]any{
			"config":         configPath,
			"config_created": created,
			"data_dir":       dataDir,
		})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Airlock initialized")
	if created {
		fmt.Fprintln(out, "Config:", configPath)
	} else {
		fmt.Fprintln(out, "Config:", configPath, "(existing, kept)")
	}
	fmt.Fprintln(out, "Register:", dataDir)
	return nil
}

// starterRuleSet converts the YAML starter shape to a RuleSet for
// validation, so init never writes a config later commands would reject.
func starterRuleSet(r starterRules) types.RuleSet {
	return types.RuleSet{
		MinThreshold:               r.MinThreshold,
		RoundingBase:               r.RoundingBase,
		SuppressionSymbol:          r.SuppressionSymbol,
		EnforceMarginalConsistency: r.EnforceMarginalConsistency,
		MaxComplementaryPasses:     r.MaxComplementaryPasses,
	}
}

// writeConfigIfMissing creates config.yaml with the starter values if the
// file does not exist. An existing file is never touched (idempotent);
// returns whether the file was created.
func writeConfigIfMissing(path string, cfg starterConfig) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return false, fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}
