// Package version provides the version string for sentry-cli.
package version

import "strings"

// Version is the current release version.
// This is a var (not const) so ldflags -X can override it at build time.
var Version = "dev"

// String returns the version without a leading 'v', the form sentry-cli
// prints and sends in its User-Agent.
func String() string {
	return strings.TrimPrefix(Version, "v")
}

// UserAgent returns the User-Agent header value for API requests.
func UserAgent() string {
	return "sentry-cli/" + String()
}
