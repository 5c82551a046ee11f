package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeShirley/sentry-cli/internal/updatecheck"
	"github.com/JakeShirley/sentry-cli/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the sentry-cli version",
		Long: `Print the sentry-cli version.

With --check, also look up the latest release and print how to upgrade.
The answer is cached for a day.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !check {
				if ok, err := a.formatOutput(out, map[string]string{"version": version.String()}); ok {
					return err
				}
				fmt.Fprintf(out, "sentry-cli %s\n", version.String())
				return nil
			}

			exe, _ := os.Executable()
			checker := updatecheck.NewChecker(a.cfg.Update.URL, updatecheck.DetectInstallMethod(exe), a.logger)
			res := checker.Check(cmd.Context(), version.String())

			if ok, err := a.formatOutput(out, res); ok {
				return err
			}
			fmt.Fprintf(out, "sentry-cli %s\n", version.String())
			switch {
			case res.LatestVersion == "":
				fmt.Fprintf(out, "%s could not check for updates: %v\n", warnFmt(">"), res.Err)
			case res.UpdateAvailable:
				fmt.Fprintf(out, "%s sentry-cli %s is available %s\n", warnFmt(">"), res.LatestVersion, dimFmt(res.ReleaseURL))
				fmt.Fprintf(out, "  %s\n", res.UpgradeCommand)
			default:
				fmt.Fprintf(out, "%s latest release is %s\n", headerFmt(">"), res.LatestVersion)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "Check whether a newer release is available")
	return cmd
}
