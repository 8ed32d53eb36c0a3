// Package rascas writes RASCAS parameter files for survey tasks and can
// hand them to a RASCAS driver executable.
package rascas

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/params"
	"github.com/papapumpkin/haloprep/internal/survey"
)

// ErrIncompleteTask indicates a task without a survey name or output dir.
var ErrIncompleteTask = errors.New("task missing survey or output directory")

// Runner implements survey.Runner by writing one parameter file per
// survey. When Exec is set it is run with the parameter file as argument.
type Runner struct {
	Exec    string
	Verbose bool
	Logger  *zap.Logger
}

var _ survey.Runner = (*Runner)(nil)

// ParamFile returns the parameter file path for t.
func ParamFile(t survey.Task) string {
	return filepath.Join(t.OutputDir, t.Survey, "params_"+t.Survey+".cfg")
}

// OutputFile returns the RASCAS photon output path for t.
func OutputFile(t survey.Task) string {
	return filepath.Join(t.OutputDir, t.Survey, fmt.Sprintf("%05d.RASCAS", t.Timestep))
}

// Setup creates the survey and domain-dump directories, writes the
// parameter file and optionally runs Exec on it.
func (r *Runner) Setup(ctx context.Context, t survey.Task) error {
	if t.Survey == "" || t.OutputDir == "" {
		return ErrIncompleteTask
	}
	surveyDir := filepath.Join(t.OutputDir, t.Survey)
	if err := os.MkdirAll(surveyDir, 0o755); err != nil {
		return fmt.Errorf("rascas: create %s: %w", surveyDir, err)
	}
	if t.DomDumpDir != "" {
		dd := filepath.Join(t.OutputDir, t.DomDumpDir)
		if err := os.MkdirAll(dd, 0o755); err != nil {
			return fmt.Errorf("rascas: create %s: %w", dd, err)
		}
	}

	path := ParamFile(t)
	if err := writeParamFile(path, t); err != nil {
		return err
	}
	if r.Logger != nil {
		r.Logger.Debug("wrote parameter file", zap.String("path", path))
	}

	if r.Exec == "" {
		return nil
	}
	return r.run(ctx, surveyDir, path)
}

func (r *Runner) run(ctx context.Context, dir, paramFile string) error {
	if r.Verbose {
		fmt.Fprintf(os.Stderr, "[rascas] running: %s %s\n", r.Exec, paramFile)
	}

	cmd := exec.CommandContext(ctx, r.Exec, paramFile)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("rascas: %s failed: %w\nstderr: %s", r.Exec, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func writeParamFile(path string, t survey.Task) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rascas: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := Encode(w, t); err != nil {
		return fmt.Errorf("rascas: write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("rascas: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("rascas: close %s: %w", path, err)
	}
	return nil
}

// Encode writes t as a RASCAS parameter file: a [RASCAS] section with the
// run-level settings followed by one section per bundle group.
func Encode(w io.Writer, t survey.Task) error {
	header := params.NewGroup("RASCAS",
		"DomDumpDir", t.DomDumpDir,
		"repository", t.RamsesDir,
		"snapnum", params.Int(int64(t.Timestep)),
		"executables", t.F90Dir,
		"nphotons", params.Int(t.NPhotons),
		"fileout", OutputFile(t),
	)
	groups := append([]params.Group{header}, t.Bundle.Groups()...)
	for i, g := range groups {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "[%s]\n", g.Name); err != nil {
			return err
		}
		for _, e := range g.Entries {
			if _, err := fmt.Fprintf(w, "  %s = %s\n", e.Key, e.Value); err != nil {
				return err
			}
		}
	}
	return nil
}
