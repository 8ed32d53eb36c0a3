package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/pipeline"
	"github.com/papapumpkin/haloprep/internal/plan"
	"github.com/papapumpkin/haloprep/internal/rascas"
	"github.com/papapumpkin/haloprep/internal/survey"
	"github.com/papapumpkin/haloprep/internal/telemetry"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Select halos and set up every (halo, band) RASCAS survey",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().Int("workers", 0, "halos set up concurrently (0 or 1 = sequential)")
	runCmd.Flags().String("exec", "", "RASCAS driver run on each parameter file")
	runCmd.Flags().Float64("threshold", 0, "override the plan's stellar mass threshold")
	runCmd.Flags().Bool("watch", false, "re-run whenever the plan file changes")
	runCmd.Flags().Bool("no-telemetry", false, "do not record a JSONL telemetry file")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx, cancel := setupSignalContext(s.printer)
	defer cancel()

	watch, _ := cmd.Flags().GetBool("watch")
	return runThenWatch(ctx, watch,
		func(ctx context.Context) error { return runOnce(ctx, cmd, s) },
		func(ctx context.Context) error { return watchPlan(ctx, cmd, s) },
		s.logger)
}

// runThenWatch runs once and, when watching, enters the watch loop even if
// that run failed, since the next save may fix the plan.
func runThenWatch(ctx context.Context, watching bool, once, watch func(context.Context) error, log *zap.Logger) error {
	err := once(ctx)
	if !watching {
		return err
	}
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Warn("run failed, watching plan for changes", zap.Error(err))
	}
	return watch(ctx)
}

// runOnce loads the plan and catalogue and runs the pipeline a single time.
func runOnce(ctx context.Context, cmd *cobra.Command, s *session) error {
	p, err := s.loadPlan()
	if err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("threshold"); f != nil && f.Changed {
		p.Run.MstarThreshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	halos, err := catalog.Load(p.Catalog.Path, p.CatalogColumns())
	if err != nil {
		s.printer.Error(err.Error())
		return err
	}

	em, err := openTelemetry(cmd, s)
	if err != nil {
		return err
	}
	defer em.Close()

	workers := p.Run.Workers
	if s.cfg.Workers > 0 {
		workers = s.cfg.Workers
	}
	execPath := p.Run.Exec
	if s.cfg.Exec != "" {
		execPath = s.cfg.Exec
	}

	d := &survey.Dispatcher{
		Runner:    &rascas.Runner{Exec: execPath, Verbose: s.cfg.Verbose, Logger: s.logger},
		Assembler: p.Assembler(),
		Bands:     p.Bands,
		Layout:    p.Layout(),
		NPhotons:  p.Run.NPhotons,
		Workers:   workers,
		Logger:    s.logger,
		Telemetry: em,
		UI:        s.printer,
	}

	_, err = pipeline.Run(ctx, pipeline.Options{
		Halos:      halos,
		Threshold:  p.Run.MstarThreshold,
		Dispatcher: d,
		Logger:     s.logger,
		Telemetry:  em,
		UI:         s.printer,
	})
	if err != nil {
		s.printer.Error(err.Error())
	}
	return err
}

// openTelemetry creates the emitter for a new run, or returns nil when
// telemetry is disabled.
func openTelemetry(cmd *cobra.Command, s *session) (*telemetry.Emitter, error) {
	if off, _ := cmd.Flags().GetBool("no-telemetry"); off || s.cfg.TelemetryDir == "" {
		return nil, nil
	}
	runID := telemetry.NewRunID()
	path := filepath.Join(s.cfg.TelemetryDir, runID+".jsonl")
	em, err := telemetry.NewEmitter(path, runID)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("recording telemetry", zap.String("path", path))
	return em, nil
}

// watchPlan re-runs the pipeline each time the plan file is saved, until
// ctx is canceled.
func watchPlan(ctx context.Context, cmd *cobra.Command, s *session) error {
	w, err := plan.NewWatcher(s.cfg.Plan)
	if err != nil {
		return fmt.Errorf("failed to watch plan: %w", err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to watch plan: %w", err)
	}
	defer w.Stop()

	s.printer.Info(fmt.Sprintf("watching %s for changes (ctrl-c to stop)", s.cfg.Plan))
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-w.Changes:
			if !ok {
				return nil
			}
			s.logger.Info("plan changed, re-running", zap.String("plan", s.cfg.Plan))
			if err := runOnce(ctx, cmd, s); err != nil && !errors.Is(err, context.Canceled) {
				// Keep watching; the next save may fix the plan.
				s.logger.Warn("run failed", zap.Error(err))
			}
		}
	}
}
