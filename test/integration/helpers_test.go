package integration

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/JakeShirley/sentry-cli/cmd/sentry-cli/cmd"
	"github.com/JakeShirley/sentry-cli/internal/testutil/cli"
	"github.com/JakeShirley/sentry-cli/internal/testutil/mockhttp"
)

const (
	testOrg     = "acme"
	testProject = "web"
	testToken   = "secret-token"

	debugFilesPath = "/api/0/projects/" + testOrg + "/" + testProject + "/files/dsyms/"
	symbolsDir     = "_fixtures/symbols"
)

var (
	stepFmt = color.New(color.FgBlue, color.Bold).SprintFunc()
	okFmt   = color.New(color.FgGreen).SprintFunc()
)

func init() {
	// Output assertions compare plain text.
	color.NoColor = true
}

// logStep logs a test step in blue bold
func logStep(t *testing.T, step int, msg string) {
	t.Helper()
	t.Logf("%s %s", stepFmt(fmt.Sprintf("[Step %d]", step)), msg)
}

// logOK logs a success message in green
func logOK(t *testing.T, msg string) {
	t.Helper()
	t.Logf("%s %s", okFmt("✓"), msg)
}

// isolate gives a sentry-cli run an empty home directory and a clean
// SENTRY_* environment. It uses t.Setenv, so callers cannot run in parallel.
func isolate(t *testing.T) {
	t.Helper()
	cli.TempHome(t, "")
	t.Setenv("SENTRY_LOAD_DOTENV", "0")
	for _, name := range []string{"SENTRY_URL", "SENTRY_ORG", "SENTRY_PROJECT", "SENTRY_AUTH_TOKEN", "SENTRY_LOG_LEVEL", "SENTRY_HTTP_TIMEOUT", "SENTRY_UPDATE_URL"} {
		t.Setenv(name, "")
	}
}

// runCLI runs sentry-cli in-process with a fresh command tree.
func runCLI(t *testing.T, args ...string) *cli.CommandResult {
	t.Helper()
	t.Logf("$ sentry-cli %s", strings.Join(args, " "))
	return cli.Run(cmd.NewRootCmd(), args...)
}

// uploadArgs returns upload-dif arguments that target srv with the test
// credentials, followed by extra.
func uploadArgs(srv *mockhttp.Server, extra ...string) []string {
	args := []string{
		"upload-dif",
		"--url", srv.URL(),
		"--auth-token", testToken,
		"--org", testOrg,
		"--project", testProject,
	}
	return append(args, extra...)
}
