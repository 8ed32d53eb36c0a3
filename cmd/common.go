package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/config"
	"github.com/papapumpkin/haloprep/internal/logging"
	"github.com/papapumpkin/haloprep/internal/plan"
	"github.com/papapumpkin/haloprep/internal/ui"
)

// session bundles what every subcommand needs after startup.
type session struct {
	cfg     config.Config
	printer *ui.Printer
	logger  *zap.Logger
}

// newSession loads config, applies persistent flag overrides and builds
// the logger.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyFlagOverrides(cmd, &cfg)

	logger, err := logging.New(cfg.Verbose, cfg.LogJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return &session{cfg: cfg, printer: ui.New(), logger: logger}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// applyFlagOverrides applies CLI flag values to the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if v, _ := cmd.Flags().GetString("plan"); v != "" {
		cfg.Plan = v
	}
	if v, _ := cmd.Flags().GetBool("verbose"); v {
		cfg.Verbose = true
	}
	if v, _ := cmd.Flags().GetBool("log-json"); v {
		cfg.LogJSON = true
	}
	if f := cmd.Flags().Lookup("workers"); f != nil && f.Changed {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if v, _ := cmd.Flags().GetString("exec"); v != "" {
		cfg.Exec = v
	}
}

// loadPlan reads and validates the plan named by cfg.
func (s *session) loadPlan() (*plan.Plan, error) {
	p, err := plan.Load(s.cfg.Plan)
	if err != nil {
		s.printer.Error(err.Error())
		return nil, err
	}
	if errs := plan.Validate(p); len(errs) > 0 {
		s.printer.ValidateResult(s.cfg.Plan, len(p.Bands), validationMessages(errs))
		return nil, fmt.Errorf("plan validation failed with %d error(s)", len(errs))
	}
	return p, nil
}

func validationMessages(errs []plan.ValidationError) []string {
	msgs := make([]string, len(errs))
	for i := range errs {
		msgs[i] = errs[i].Error()
	}
	return msgs
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
