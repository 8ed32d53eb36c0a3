// Package pipeline runs one preparation pass: select halos, dispatch every
// (halo, band) survey setup, and write the manifest of processed halos.
package pipeline

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/manifest"
	"github.com/papapumpkin/haloprep/internal/survey"
	"github.com/papapumpkin/haloprep/internal/telemetry"
	"github.com/papapumpkin/haloprep/internal/ui"
)

// Options configures a pipeline run.
type Options struct {
	Halos      []catalog.Halo
	Threshold  float64
	Dispatcher *survey.Dispatcher

	// ManifestPath defaults to manifest.Path(Layout.RascasDir, Layout.Timestep).
	ManifestPath string

	Logger    *zap.Logger
	Telemetry *telemetry.Emitter
	UI        ui.UI
}

// Summary describes a finished (or aborted) run.
type Summary struct {
	Candidates   []int64
	Processed    []int64
	ManifestPath string
}

// Run selects candidates, dispatches them and writes the manifest. The
// manifest is written even when dispatch fails, listing only halos whose
// every band completed; the dispatch error is returned first.
func Run(ctx context.Context, opts Options) (Summary, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := opts.Dispatcher
	sum := Summary{ManifestPath: opts.ManifestPath}
	if sum.ManifestPath == "" {
		sum.ManifestPath = manifest.Path(d.Layout.RascasDir, d.Layout.Timestep)
	}

	emit(opts.Telemetry, log, telemetry.Event{Kind: telemetry.KindRunStart, Data: map[string]any{
		"halos":     len(opts.Halos),
		"threshold": opts.Threshold,
		"bands":     len(d.Bands),
		"timestep":  d.Layout.Timestep,
	}})

	candidates := catalog.Select(opts.Halos, opts.Threshold)
	sum.Candidates = catalog.IDs(candidates)
	emit(opts.Telemetry, log, telemetry.Event{Kind: telemetry.KindSelection, Data: map[string]any{
		"candidates": len(candidates),
	}})
	if len(candidates) == 0 {
		log.Warn("empty selection", zap.Error(catalog.ErrCatalogEmpty), zap.Float64("threshold", opts.Threshold))
		if opts.UI != nil {
			opts.UI.EmptySelection(opts.Threshold)
		}
	} else {
		log.Info("selected halos", zap.Int("candidates", len(candidates)), zap.Int("catalogue", len(opts.Halos)))
	}

	start := time.Now()
	var m manifest.Manifest
	processed, dispatchErr := d.Run(ctx, candidates)
	m.Add(processed...)
	sum.Processed = m.IDs()

	writeErr := m.WriteFile(sum.ManifestPath)
	if writeErr != nil {
		log.Error("manifest write failed", zap.String("path", sum.ManifestPath), zap.Error(writeErr))
	} else {
		log.Info("manifest written", zap.String("path", sum.ManifestPath), zap.Int("halos", m.Len()))
		emit(opts.Telemetry, log, telemetry.Event{Kind: telemetry.KindManifestWritten, Data: map[string]any{
			"path":  sum.ManifestPath,
			"halos": m.Len(),
		}})
	}

	done := map[string]any{
		"processed": m.Len(),
		"elapsed":   time.Since(start).String(),
	}
	if dispatchErr != nil {
		done["error"] = dispatchErr.Error()
	}
	emit(opts.Telemetry, log, telemetry.Event{Kind: telemetry.KindRunDone, Data: done})

	if dispatchErr != nil {
		if writeErr != nil {
			return sum, errors.Join(dispatchErr, writeErr)
		}
		return sum, dispatchErr
	}
	if writeErr != nil {
		return sum, writeErr
	}
	if opts.UI != nil {
		opts.UI.RunSummary(m.Len(), sum.ManifestPath)
	}
	return sum, nil
}

func emit(em *telemetry.Emitter, log *zap.Logger, evt telemetry.Event) {
	evt.Timestamp = time.Now()
	if err := em.Emit(evt); err != nil {
		log.Warn("telemetry emit failed", zap.Error(err))
	}
}
