// sentry-cli uploads debug information files to Sentry.
package main

import (
	"os"

	"github.com/JakeShirley/sentry-cli/cmd/sentry-cli/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
