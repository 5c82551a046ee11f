// Package cli runs cobra commands in-process for tests.
//
// Run captures stdout, stderr, the returned error and the exit code the
// binary would use:
//
//	result := cli.Run(cmd.NewRootCmd(), "upload-dif", "--help")
//	result.AssertSuccess(t)
//	result.AssertLines(t, "Usage:", "  sentry-cli upload-dif [PATH]... [flags]")
//
// Failures carry the exit code of the clierror they wrap:
//
//	result := cli.Run(cmd.NewRootCmd(), "upload-dif", "--org", "acme", ".")
//	result.AssertExitCode(t, clierror.ExitAuth)
//
// TempHome isolates configuration lookups by pointing HOME at a fresh
// directory, optionally seeded with a .sentryclirc file.
package cli
