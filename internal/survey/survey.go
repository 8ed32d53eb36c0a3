// Package survey dispatches one RASCAS survey setup per (halo, band) pair.
package survey

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/params"
)

var (
	// ErrExternalTask wraps any failure reported by a Runner.
	ErrExternalTask = errors.New("survey setup failed")
	// ErrNoBands indicates a dispatcher configured without any band.
	ErrNoBands = errors.New("no survey band configured")
	// ErrDuplicateHalo indicates two halos sharing an ID, and so an output
	// directory.
	ErrDuplicateHalo = errors.New("duplicate halo id")
)

// Band is a photometric survey applied to every selected halo.
type Band struct {
	Name           string  `toml:"name"`
	LambdaAngstrom float64 `toml:"lambda_angstrom"`
	Albedo         float64 `toml:"albedo"`
	GDust          float64 `toml:"g_dust"`
}

// Optics returns the band-dependent assembler inputs.
func (b Band) Optics() *params.BandOptics {
	return &params.BandOptics{LambdaAngstrom: b.LambdaAngstrom, Albedo: b.Albedo, GDust: b.GDust}
}

// DefaultBand is the rest-frame 1500 A continuum with Li & Draine optics.
var DefaultBand = Band{Name: "1500A_rf", LambdaAngstrom: 1500, Albedo: 0.38, GDust: 0.70}

// Task is everything a Runner needs to set up one survey for one halo.
type Task struct {
	Survey     string
	HaloID     int64
	OutputDir  string // per-halo RASCAS directory
	DomDumpDir string // subdirectory of OutputDir for CreateDomDump outputs
	RamsesDir  string
	Timestep   int
	F90Dir     string
	NPhotons   int64
	Bundle     params.Bundle
}

// Runner sets up a survey. Implementations may create files under
// t.OutputDir and must return any failure.
type Runner interface {
	Setup(ctx context.Context, t Task) error
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, t Task) error

// Setup calls f(ctx, t).
func (f RunnerFunc) Setup(ctx context.Context, t Task) error { return f(ctx, t) }

// TaskError records which (halo, survey) pair a Runner failed on.
type TaskError struct {
	HaloID int64
	Survey string
	Err    error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("halo %d: survey %s: %v: %v", e.HaloID, e.Survey, ErrExternalTask, e.Err)
}

// Unwrap exposes both the sentinel and the runner's own error.
func (e *TaskError) Unwrap() []error { return []error{ErrExternalTask, e.Err} }

// DuplicateHaloError reports the input positions of two halos with the
// same ID.
type DuplicateHaloError struct {
	HaloID        int64
	First, Second int
}

func (e *DuplicateHaloError) Error() string {
	return fmt.Sprintf("%v: %d at positions %d and %d", ErrDuplicateHalo, e.HaloID, e.First, e.Second)
}

func (e *DuplicateHaloError) Unwrap() error { return ErrDuplicateHalo }

// checkUnique returns a *DuplicateHaloError for the first repeated ID.
func checkUnique(halos []catalog.Halo) error {
	seen := make(map[int64]int, len(halos))
	for i, h := range halos {
		if j, ok := seen[h.ID]; ok {
			return &DuplicateHaloError{HaloID: h.ID, First: j, Second: i}
		}
		seen[h.ID] = i
	}
	return nil
}

// TimestepDir returns {base}/{timestep:05d}.
func TimestepDir(base string, timestep int) string {
	return filepath.Join(base, fmt.Sprintf("%05d", timestep))
}

// OutputDir returns the per-halo directory {base}/{timestep:05d}/halo{id}.
func OutputDir(base string, timestep int, haloID int64) string {
	return filepath.Join(TimestepDir(base, timestep), fmt.Sprintf("halo%d", haloID))
}
