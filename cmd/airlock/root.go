// Root command for the airlock CLI.
package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bhfdschds/hds-functions/internal/paths"
	"github.com/bhfdschds/hds-functions/pkg/sdc"
)

// Exit codes: 0 success, 1 user error (bad input, bad rules, refused
// release), 2 system error (register or filesystem failure).
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

var flags rootFlags

// cfg holds config.yaml as loaded by PersistentPreRunE; configDataDir is
// the data_dir value it carried, feeding the precedence chain in
// resolveDataDir.
var (
	cfg           *viper.Viper
	configDataDir string
)

// newRootCmd creates the top-level "airlock" command with global flags and
// all subcommands registered. Building the tree fresh resets flag state,
// so tests can execute commands in-process.
func newRootCmd() *cobra.Command {
	flags = rootFlags{}
	cfg = viper.New()
	configDataDir = ""

	root := &cobra.Command{
		Use:   "airlock",
		Short: "Airlock prepares aggregated count tables for safe release",
		Long: `Airlock applies statistical disclosure control to aggregated count
tables produced inside a trusted research environment: counts below a
minimum threshold are suppressed, remaining counts are rounded, and
additional cells are masked so no suppressed value can be recovered from
published totals. Every run is recorded in a local release register.`,
		Version:      sdc.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := resolveConfigDir()
			if err != nil {
				return sysErr(err)
			}
			loaded, err := loadConfig(configDir)
			if err != nil {
				return sysErr(err)
			}
			cfg = loaded
			configDataDir = cfg.GetString(cfgKeyDataDir)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory holding the release register (default: $(CWD)/.airlock-data)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newApplyCmd())
	root.AddCommand(newCheckCmd())
	root.AddCommand(newFlowchartCmd())
	root.AddCommand(newRunsCmd())

	return root
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > AIRLOCK_CONFIG_DIR env > platform
// default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flags.configDir)
}

// resolveDataDir returns the data directory following the precedence
// chain: --data-dir flag > config.yaml data_dir > AIRLOCK_DATA_DIR env >
// default $(CWD)/.airlock-data.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flags.dataDir, configDataDir)
}
