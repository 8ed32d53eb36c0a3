// Package cleanup removes stale RASCAS outputs from per-halo survey
// directories before a survey is re-run.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
)

// Default survey subdirectory and file pattern.
const (
	DefaultSubdir  = "1500A_rf"
	DefaultPattern = "00*RASCAS*"
)

// Target selects the files to remove: {Base}/halo{id}/{Subdir}/{Pattern}
// for every id. Base is usually the timestep directory.
type Target struct {
	Base    string
	HaloIDs []int64
	Subdir  string // empty means DefaultSubdir
	Pattern string // empty means DefaultPattern
	DryRun  bool
}

// Result reports one matched file. Err is nil when the file was removed
// (or would have been, on a dry run).
type Result struct {
	HaloID int64
	Path   string
	Err    error
}

// Dir returns the survey directory searched for id.
func (t Target) Dir(id int64) string {
	sub := t.Subdir
	if sub == "" {
		sub = DefaultSubdir
	}
	return filepath.Join(t.Base, fmt.Sprintf("halo%d", id), sub)
}

func (t Target) pattern() string {
	if t.Pattern == "" {
		return DefaultPattern
	}
	return t.Pattern
}

// Clean removes every match. Halos without matches, or without a survey
// directory, contribute nothing. Removal failures are reported per file and
// do not stop the sweep. Only a malformed pattern returns an error.
func Clean(t Target) ([]Result, error) {
	pattern := t.pattern()
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("cleanup: pattern %q: %w", pattern, err)
	}

	var results []Result
	for _, id := range t.HaloIDs {
		matches, err := filepath.Glob(filepath.Join(t.Dir(id), pattern))
		if err != nil {
			return results, fmt.Errorf("cleanup: halo %d: %w", id, err)
		}
		for _, m := range matches {
			r := Result{HaloID: id, Path: m}
			if !t.DryRun {
				if err := os.Remove(m); err != nil {
					r.Err = err
				}
			}
			results = append(results, r)
		}
	}
	return results, nil
}

// Failed counts results that carry an error.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
