// Package clierror provides structured error handling for CLI commands.
//
// CLI errors include an exit code, user-facing message, and optional
// troubleshooting hints. This separates internal error details from
// what gets displayed to users.
//
// # Usage
//
//	if resp.StatusCode == http.StatusNotFound {
//	    return clierror.ProjectNotFound(org, project)
//	}
//
// At the top level, map any error to its exit code:
//
//	os.Exit(clierror.ExitCodeOf(err))
package clierror
