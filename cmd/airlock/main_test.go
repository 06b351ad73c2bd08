package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cliDirs holds the config and data directories passed to every test
// invocation, so tests never touch the user's real directories or the
// AIRLOCK_* environment.
type cliDirs struct {
	config string
	data   string
}

func newCLIDirs(t *testing.T) cliDirs {
	t.Helper()
	return cliDirs{config: t.TempDir(), data: t.TempDir()}
}

// runCLI executes the airlock command tree in-process and captures its
// output. The directory flags are always passed first; persistent flags
// may appear anywhere on the line.
func runCLI(t *testing.T, dirs cliDirs, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	full := append([]string{"--config-dir", dirs.config, "--data-dir", dirs.data}, args...)
	root := newRootCmd()
	var out, errBuf bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errBuf)
	root.SetArgs(full)
	err = root.Execute()
	return out.String(), errBuf.String(), err
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// gridCSV is a consistent 2x2 table with marginals: one unsafe count (3)
// under threshold 5.
const gridCSV = `age_band,north,south,total
18-29,10,12,22
30-49,5,3,8
total,15,15,30
`

// gridRuleArgs supplies the full rule set as flags: threshold 5, base 5,
// symbol "<5", marginal consistency on, pass budget 10.
func gridRuleArgs() []string {
	return []string{
		"--min-threshold", "5",
		"--rounding-base", "5",
		"--symbol", "<5",
		"--marginal-consistency",
		"--max-passes", "10",
	}
}

func TestVersionCommand(t *testing.T) {
	dirs := newCLIDirs(t)
	out, _, err := runCLI(t, dirs, "version")
	require.NoError(t, err)
	assert.Equal(t, "airlock 0.1.0\n", out)
}

func TestUnknownCommand(t *testing.T) {
	dirs := newCLIDirs(t)
	_, _, err := runCLI(t, dirs, "nonsense")
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitSuccess},
		{name: "plain error", err: errors.New("bad input"), want: exitUserError},
		{name: "system error", err: sysErr(errors.New("disk full")), want: exitSysError},
		{name: "wrapped system error", err: fmt.Errorf("context: %w", sysErr(errors.New("disk full"))), want: exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "admissions_released.csv", defaultOutputPath("admissions.csv"))
	assert.Equal(t, filepath.Join("d", "t_released.json"), defaultOutputPath(filepath.Join("d", "t.json")))
	assert.Equal(t, "counts_released", defaultOutputPath("counts"))
}
