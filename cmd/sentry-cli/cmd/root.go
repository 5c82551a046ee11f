// Package cmd implements the sentry-cli commands.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeShirley/sentry-cli/internal/config"
	"github.com/JakeShirley/sentry-cli/internal/logging"
	"github.com/JakeShirley/sentry-cli/internal/version"
	"github.com/JakeShirley/sentry-cli/pkg/clierror"
)

// app holds the state shared by the commands of one invocation.
type app struct {
	outputFormat string

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCmd builds the sentry-cli command tree. Every call returns a fresh
// tree, so flag values do not leak between invocations.
func NewRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	rootCmd := &cobra.Command{
		Use:   "sentry-cli",
		Short: "Command line utility for Sentry",
		Long: `sentry-cli uploads debug information files to Sentry.

Settings are read from ~/.sentryclirc, ./.sentryclirc, a .env file,
SENTRY_* environment variables and flags, in increasing priority.`,
		Version:           version.String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}
	rootCmd.SetVersionTemplate("sentry-cli {{.Version}}\n")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return clierror.InvalidConfig(err.Error())
	})

	pf := rootCmd.PersistentFlags()
	pf.String("url", "", "Fully qualified URL to the Sentry server (default \""+config.DefaultURL+"\")")
	pf.String("auth-token", "", "Use the given Sentry auth token")
	pf.String("log-level", "", "Set the log output verbosity: trace, debug, info, warn, error")
	pf.StringArray("header", nil, "Custom header attached to all requests, in key:value format")
	pf.StringVarP(&a.outputFormat, "output", "o", "text", "Output format: text, json, yaml")

	rootCmd.AddCommand(newUploadDifCmd(a))
	rootCmd.AddCommand(newVersionCmd(a))
	return rootCmd
}

// setup validates global flags and loads the configuration before any
// subcommand runs.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	switch a.outputFormat {
	case "text", "json", "yaml":
	default:
		return clierror.InvalidConfig(fmt.Sprintf("unknown output format %q (expected text, json or yaml)", a.outputFormat))
	}

	// version works without a usable configuration unless it checks for updates
	if cmd.Name() == "version" {
		if check, _ := cmd.Flags().GetBool("check"); !check {
			return nil
		}
	}

	cfg, err := config.Load(cmd.Flags(), config.Options{})
	if err != nil {
		return clierror.InvalidConfig(err.Error())
	}
	logger, err := logging.New(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return clierror.InvalidConfig(err.Error())
	}

	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("configuration loaded",
		zap.String("url", cfg.Defaults.URL),
		zap.String("org", cfg.Defaults.Org),
		zap.String("project", cfg.Defaults.Project),
		zap.Bool("auth_token", cfg.Auth.Token != ""),
	)
	return nil
}

// Run executes sentry-cli with args and returns the process exit code.
// Errors are printed to stderr in the selected output format.
func Run(args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return clierror.ExitSuccess
	}

	format, _ := rootCmd.PersistentFlags().GetString("output")
	clierror.PrintError(stderr, clierror.From(err), format)
	return clierror.ExitCodeOf(err)
}

// Execute runs sentry-cli with the process arguments.
func Execute() int {
	return Run(os.Args[1:], os.Stdout, os.Stderr)
}
