package difutil

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// ScanOptions filters the files returned by Scan.
type ScanOptions struct {
	// Types restricts results to these formats. Empty means all formats.
	Types []FileType
	// IDs restricts results to files with one of these debug ids. Empty means any id.
	IDs []uuid.UUID
	// Exclude holds doublestar glob patterns. A file is skipped when a pattern
	// matches its path relative to the scanned root or its base name.
	Exclude []string
}

// Scan walks every path (file or directory) and returns the debug
// information files found, sorted by path. Unreadable or malformed files do
// not stop the scan; their errors are combined into the returned error.
func Scan(paths []string, opts ScanOptions) ([]DebugFile, error) {
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	var (
		found []DebugFile
		errs  error
	)
	for _, root := range paths {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = multierr.Append(errs, err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}
			if excluded(root, path, opts.Exclude) {
				return nil
			}

			dif, err := Inspect(path)
			if err != nil {
				errs = multierr.Append(errs, err)
				return nil
			}
			if dif != nil && opts.matches(dif) {
				found = append(found, *dif)
			}
			return nil
		})
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	sort.Slice(found, func(i, j int) bool { return found[i].Path < found[j].Path })
	return found, errs
}

func (o ScanOptions) matches(dif *DebugFile) bool {
	if len(o.Types) > 0 {
		ok := false
		for _, t := range o.Types {
			if dif.Type == t {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(o.IDs) > 0 {
		for _, id := range o.IDs {
			if dif.ID == id {
				return true
			}
		}
		return false
	}
	return true
}

func excluded(root, path string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		rel = filepath.Base(path)
	}
	rel = filepath.ToSlash(rel)
	base := filepath.Base(path)
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(p, base); ok {
			return true
		}
	}
	return false
}

// Missing returns the ids that do not appear in files.
func Missing(ids []uuid.UUID, files []DebugFile) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(files))
	for _, f := range files {
		seen[f.ID] = true
	}
	var missing []uuid.UUID
	for _, id := range ids {
		if !seen[id] {
			missing = append(missing, id)
		}
	}
	return missing
}
