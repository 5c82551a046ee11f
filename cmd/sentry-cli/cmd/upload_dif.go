package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/JakeShirley/sentry-cli/internal/api"
	"github.com/JakeShirley/sentry-cli/internal/difutil"
	"github.com/JakeShirley/sentry-cli/pkg/clierror"
)

var (
	headerFmt = color.New(color.FgGreen, color.Bold).SprintFunc()
	dimFmt    = color.New(color.Faint).SprintFunc()
	warnFmt   = color.New(color.FgYellow).SprintFunc()
)

type uploadDifOptions struct {
	types      []string
	ids        []string
	exclude    []string
	noUpload   bool
	requireAll bool
}

func newUploadDifCmd(a *app) *cobra.Command {
	opts := &uploadDifOptions{}

	cmd := &cobra.Command{
		Use:     "upload-dif [PATH]...",
		Aliases: []string{"upload-dsym"},
		Short:   "Upload debugging information files",
		Long: `Upload debugging information files.

Searches the given paths (the current directory when none are given) for
debug information files: ELF, Mach-O, PE, PDB and Breakpad symbol files.
Files the project already has are skipped; the rest are uploaded.`,
		Example: `  sentry-cli upload-dif --org acme --project web ./build
  sentry-cli upload-dif -t breakpad --exclude '**/test/**' ./symbols
  sentry-cli upload-dif --no-upload ./build`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.uploadDif(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.String("org", "", "The organization slug")
	f.StringP("project", "p", "", "The project slug")
	f.StringSliceVarP(&opts.types, "type", "t", nil, "Only consider debug information files of the given type: elf, macho, pe, pdb, breakpad")
	f.StringSliceVar(&opts.ids, "id", nil, "Search for specific debug identifiers")
	f.StringArrayVar(&opts.exclude, "exclude", nil, "Skip files matching the given glob pattern")
	f.BoolVar(&opts.noUpload, "no-upload", false, "Find and check files but do not upload them")
	f.BoolVar(&opts.requireAll, "require-all", false, "Fail if not all identifiers given with --id were found")
	return cmd
}

// scanOptions validates the filter flags.
func (o *uploadDifOptions) scanOptions() (difutil.ScanOptions, error) {
	var so difutil.ScanOptions
	for _, t := range o.types {
		ft, err := difutil.ParseType(strings.ToLower(t))
		if err != nil {
			return so, err
		}
		so.Types = append(so.Types, ft)
	}
	for _, s := range o.ids {
		id, err := uuid.Parse(s)
		if err != nil {
			return so, fmt.Errorf("invalid debug id %q: %w", s, err)
		}
		so.IDs = append(so.IDs, id)
	}
	for _, p := range o.exclude {
		if !doublestar.ValidatePattern(p) {
			return so, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	so.Exclude = o.exclude
	return so, nil
}

// uploadFile is a debug information file as reported by upload-dif.
type uploadFile struct {
	DebugID string           `json:"debug_id" yaml:"debug_id"`
	Type    difutil.FileType `json:"type" yaml:"type"`
	Arch    string           `json:"arch,omitempty" yaml:"arch,omitempty"`
	Path    string           `json:"path" yaml:"path"`
	SHA1    string           `json:"sha1" yaml:"sha1"`
}

type uploadResult struct {
	Found    []uploadFile        `json:"found" yaml:"found"`
	Skipped  []uploadFile        `json:"skipped" yaml:"skipped"`
	Uploaded []api.DebugInfoFile `json:"uploaded" yaml:"uploaded"`
	Missing  []string            `json:"missing,omitempty" yaml:"missing,omitempty"`
}

func toUploadFile(f difutil.DebugFile) uploadFile {
	return uploadFile{
		DebugID: f.DebugID(),
		Type:    f.Type,
		Arch:    f.Arch,
		Path:    f.Path,
		SHA1:    f.Checksum,
	}
}

func (a *app) uploadDif(cmd *cobra.Command, args []string, opts *uploadDifOptions) error {
	scanOpts, err := opts.scanOptions()
	if err != nil {
		return clierror.InvalidConfig(err.Error())
	}
	if !opts.noUpload {
		if err := a.cfg.RequireProject(); err != nil {
			return clierror.InvalidConfig(err.Error())
		}
	}

	paths := args
	if len(paths) == 0 {
		paths = []string{"."}
	}

	files, scanErr := difutil.Scan(paths, scanOpts)
	for _, e := range multierr.Errors(scanErr) {
		a.logger.Warn("skipping file", zap.Error(e))
	}
	a.logger.Debug("scan finished", zap.Strings("paths", paths), zap.Int("found", len(files)))

	result := uploadResult{
		Found:    make([]uploadFile, 0, len(files)),
		Skipped:  []uploadFile{},
		Uploaded: []api.DebugInfoFile{},
	}
	for _, f := range files {
		result.Found = append(result.Found, toUploadFile(f))
	}
	for _, id := range difutil.Missing(scanOpts.IDs, files) {
		result.Missing = append(result.Missing, id.String())
	}

	if opts.noUpload {
		a.logger.Info("skipping upload (--no-upload)")
	} else if len(files) > 0 {
		if err := a.upload(cmd, files, &result); err != nil {
			return err
		}
	}

	if err := a.printUploadResult(cmd.OutOrStdout(), result, opts.noUpload); err != nil {
		return err
	}

	if opts.requireAll && len(result.Missing) > 0 {
		return clierror.DebugIDsNotFound(result.Missing)
	}
	return nil
}

// upload sends every file the project does not have yet, matched by SHA1.
func (a *app) upload(cmd *cobra.Command, files []difutil.DebugFile, result *uploadResult) error {
	ctx := cmd.Context()
	org, project := a.cfg.Defaults.Org, a.cfg.Defaults.Project

	client := api.NewClient(a.cfg.Defaults.URL, a.cfg.Auth.Token,
		api.WithTimeout(a.cfg.HTTP.Timeout),
		api.WithHeaders(a.cfg.HTTP.HeaderMap()),
		api.WithLogger(a.logger),
	)

	existing, err := client.ListDebugFiles(ctx, org, project)
	if err != nil {
		return err
	}
	uploaded := make(map[string]bool, len(existing))
	for _, f := range existing {
		uploaded[f.SHA1] = true
	}

	for _, f := range files {
		if uploaded[f.Checksum] {
			a.logger.Debug("already uploaded", zap.String("path", f.Path), zap.String("sha1", f.Checksum))
			result.Skipped = append(result.Skipped, toUploadFile(f))
			continue
		}

		created, err := client.UploadDebugFile(ctx, org, project, f)
		if err != nil {
			return err
		}
		uploaded[f.Checksum] = true
		result.Uploaded = append(result.Uploaded, created...)
	}
	return nil
}

func (a *app) printUploadResult(w io.Writer, result uploadResult, noUpload bool) error {
	if ok, err := a.formatOutput(w, result); ok {
		return err
	}

	fmt.Fprintf(w, "%s Found %d debug information %s\n", headerFmt(">"), len(result.Found), plural(len(result.Found), "file"))
	for _, f := range result.Found {
		fmt.Fprintf(w, "  %s (%s; %s)\n", f.DebugID, f.Path, describe(f))
	}

	for _, id := range result.Missing {
		fmt.Fprintf(w, "%s Missing debug information file for %s\n", warnFmt(">"), id)
	}

	if noUpload {
		fmt.Fprintf(w, "%s skipping upload\n", headerFmt(">"))
		return nil
	}

	if len(result.Skipped) > 0 {
		fmt.Fprintf(w, "%s Skipped %d already uploaded %s\n", headerFmt(">"), len(result.Skipped), plural(len(result.Skipped), "file"))
	}
	fmt.Fprintf(w, "%s Uploaded %d missing debug information %s\n", headerFmt(">"), len(result.Uploaded), plural(len(result.Uploaded), "file"))
	for _, f := range result.Uploaded {
		fmt.Fprintf(w, "  %s %s\n", f.DebugID, dimFmt(f.ObjectName))
	}
	return nil
}

func describe(f uploadFile) string {
	if f.Arch == "" {
		return string(f.Type)
	}
	return f.Arch + " " + string(f.Type)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
