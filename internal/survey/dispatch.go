package survey

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/params"
	"github.com/papapumpkin/haloprep/internal/telemetry"
	"github.com/papapumpkin/haloprep/internal/ui"
)

// Layout locates the inputs and outputs shared by every task of a run.
type Layout struct {
	RascasDir  string
	Timestep   int
	DomDumpDir string
	RamsesDir  string
	F90Dir     string
}

// Dispatcher walks halos × bands in halo-major order and calls Runner once
// per pair. The first Runner error stops dispatch.
type Dispatcher struct {
	Runner    Runner
	Assembler params.Assembler
	Bands     []Band
	Layout    Layout
	NPhotons  int64

	// Workers > 1 sets up that many halos concurrently. Bands of one halo
	// always run in order. In that mode UI only receives halo headers.
	Workers int

	Logger    *zap.Logger
	Telemetry *telemetry.Emitter
	UI        ui.UI

	uiMu sync.Mutex
}

type bandSetup struct {
	band   Band
	groups params.BandGroups
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Run dispatches every halo and returns the IDs of halos whose bands all
// completed, in input order. On failure the IDs completed so far are
// returned alongside the error. Halo IDs must be unique; a repeat fails
// with *DuplicateHaloError before any task runs.
func (d *Dispatcher) Run(ctx context.Context, halos []catalog.Halo) ([]int64, error) {
	if len(d.Bands) == 0 {
		return nil, ErrNoBands
	}
	if err := checkUnique(halos); err != nil {
		return nil, err
	}

	// Band groups depend only on the band.
	setups := make([]bandSetup, len(d.Bands))
	for i, b := range d.Bands {
		setups[i] = bandSetup{band: b, groups: d.Assembler.BandGroups(b.Optics())}
	}

	if d.Workers > 1 {
		return d.runParallel(ctx, halos, setups)
	}

	processed := make([]int64, 0, len(halos))
	for i, h := range halos {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		if err := d.runHalo(ctx, i, len(halos), h, setups); err != nil {
			return processed, err
		}
		processed = append(processed, h.ID)
	}
	return processed, nil
}

func (d *Dispatcher) runParallel(ctx context.Context, halos []catalog.Halo, setups []bandSetup) ([]int64, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.Workers)

	done := make([]bool, len(halos))
	for i, h := range halos {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := d.runHalo(gctx, i, len(halos), h, setups); err != nil {
				return err
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	processed := make([]int64, 0, len(halos))
	for i, ok := range done {
		if ok {
			processed = append(processed, halos[i].ID)
		}
	}
	return processed, err
}

func (d *Dispatcher) runHalo(ctx context.Context, index, total int, h catalog.Halo, setups []bandSetup) error {
	log := d.logger().With(zap.Int64("halo", h.ID))
	log.Debug("dispatching halo",
		zap.Float64("mstar", h.Mstar),
		zap.Float64s("pos", h.Pos[:]),
		zap.Float64("rvir", h.Radius))
	parallel := d.Workers > 1
	if d.UI != nil {
		d.uiMu.Lock()
		d.UI.HaloStart(index, total, h)
		d.uiMu.Unlock()
	}
	d.emit(telemetry.KindHaloStart, h.ID, nil)

	outDir := OutputDir(d.Layout.RascasDir, d.Layout.Timestep, h.ID)
	for _, s := range setups {
		bundle, err := d.Assembler.AssembleWith(h, s.groups)
		if err != nil {
			return err
		}

		if d.UI != nil && !parallel {
			d.UI.SurveyStart(s.band.Name)
		}
		task := Task{
			Survey:     s.band.Name,
			HaloID:     h.ID,
			OutputDir:  outDir,
			DomDumpDir: d.Layout.DomDumpDir,
			RamsesDir:  d.Layout.RamsesDir,
			Timestep:   d.Layout.Timestep,
			F90Dir:     d.Layout.F90Dir,
			NPhotons:   d.NPhotons,
			Bundle:     bundle,
		}

		start := time.Now()
		if err := d.Runner.Setup(ctx, task); err != nil {
			log.Error("survey setup failed", zap.String("survey", s.band.Name), zap.Error(err))
			d.emit(telemetry.KindTaskFailed, h.ID, map[string]any{"survey": s.band.Name, "error": err.Error()})
			return &TaskError{HaloID: h.ID, Survey: s.band.Name, Err: err}
		}
		log.Debug("survey set up",
			zap.String("survey", s.band.Name),
			zap.String("dir", outDir),
			zap.Duration("elapsed", time.Since(start)))
		d.emit(telemetry.KindTaskDone, h.ID, map[string]any{"survey": s.band.Name, "dir": outDir})
	}

	d.emit(telemetry.KindHaloDone, h.ID, nil)
	return nil
}

func (d *Dispatcher) emit(kind string, haloID int64, data map[string]any) {
	evt := telemetry.Event{Timestamp: time.Now(), Kind: kind, HaloID: telemetry.Halo(haloID)}
	if data != nil {
		evt.Data = data
	}
	if err := d.Telemetry.Emit(evt); err != nil {
		d.logger().Warn("telemetry emit failed", zap.Error(err))
	}
}
