package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeShirley/sentry-cli/internal/config"
	"github.com/JakeShirley/sentry-cli/pkg/clierror"
)

// CommandResult captures the output, error and exit code of a command execution.
type CommandResult struct {
	Stdout   string
	Stderr   string
	Err      error
	ExitCode int
}

// Run executes a cobra command with the given arguments and captures output.
// Errors are not printed by cobra; the exit code is derived from the error
// the same way the sentry-cli binary does it.
//
// Build a fresh command tree for every call: cobra keeps parsed flag values
// on the command.
//
// Example:
//
//	result := cli.Run(cmd.NewRootCmd(), "upload-dif", "--help")
//	result.AssertSuccess(t)
//	result.AssertContains(t, "Usage:")
func Run(cmd *cobra.Command, args ...string) *CommandResult {
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SilenceErrors = true

	err := cmd.Execute()

	return &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Err:      err,
		ExitCode: clierror.ExitCodeOf(err),
	}
}

// AssertSuccess fails the test immediately if the command returned an error.
func (r *CommandResult) AssertSuccess(t testing.TB) {
	t.Helper()
	require.NoError(t, r.Err, "expected command to succeed\nstdout: %s\nstderr: %s", r.Stdout, r.Stderr)
}

// AssertError fails the test immediately if the command did not return an error.
func (r *CommandResult) AssertError(t testing.TB) {
	t.Helper()
	require.Error(t, r.Err, "expected command to fail\nstdout: %s", r.Stdout)
}

// AssertExitCode fails the test if the command's exit code differs from code.
func (r *CommandResult) AssertExitCode(t testing.TB, code int) {
	t.Helper()
	assert.Equal(t, code, r.ExitCode, "exit code (err: %v)", r.Err)
}

// AssertContains fails the test if stdout does not contain the expected string.
func (r *CommandResult) AssertContains(t testing.TB, expected string) {
	t.Helper()
	assert.Contains(t, r.Stdout, expected)
}

// AssertNotContains fails the test if stdout contains the unexpected string.
func (r *CommandResult) AssertNotContains(t testing.TB, unexpected string) {
	t.Helper()
	assert.NotContains(t, r.Stdout, unexpected)
}

// AssertStderrContains fails the test if stderr does not contain the expected string.
func (r *CommandResult) AssertStderrContains(t testing.TB, expected string) {
	t.Helper()
	assert.Contains(t, r.Stderr, expected)
}

// AssertLines fails the test unless every expected line appears in stdout,
// in order. Lines are compared after trimming trailing whitespace; other
// lines may appear in between.
func (r *CommandResult) AssertLines(t testing.TB, expected ...string) {
	t.Helper()
	if i := matchedLines(r.Stdout, expected); i < len(expected) {
		t.Errorf("expected stdout to contain line %q (after %d matched lines), got:\n%s", expected[i], i, r.Stdout)
	}
}

// matchedLines returns how many of expected appear in stdout in order.
func matchedLines(stdout string, expected []string) int {
	i := 0
	for _, line := range strings.Split(stdout, "\n") {
		if i < len(expected) && strings.TrimRight(line, " \t\r") == strings.TrimRight(expected[i], " \t\r") {
			i++
		}
	}
	return i
}

// AssertJSON decodes stdout as JSON into v, failing the test immediately if
// it is not valid JSON.
func (r *CommandResult) AssertJSON(t testing.TB, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(r.Stdout), v), "stdout is not JSON:\n%s", r.Stdout)
}

// TempHome creates an empty home directory, points HOME at it and returns
// its path. When rc is non-empty it is written to <home>/.sentryclirc.
//
// TempHome uses t.Setenv, so the calling test cannot run in parallel.
//
// Example:
//
//	home := cli.TempHome(t, "[defaults]\norg = acme\n")
func TempHome(t *testing.T, rc string) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	if rc != "" {
		WriteRC(t, home, rc)
	}
	return home
}

// WriteRC writes a .sentryclirc file into dir and returns its path.
func WriteRC(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600), "write %s", path)
	return path
}
