// Package plan loads haloprep.toml, the description of one preparation run:
// where the snapshot and outputs live, which halos to select, the physics
// shared by every halo, and the survey bands to set up.
package plan

import (
	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/params"
	"github.com/papapumpkin/haloprep/internal/survey"
)

// FileName is the default plan file name.
const FileName = "haloprep.toml"

// Run holds the run-level settings from the [run] table.
type Run struct {
	RascasDir              string  `toml:"rascas_dir"`
	F90Dir                 string  `toml:"f90_dir"`
	RamsesDir              string  `toml:"ramses_dir"`
	Timestep               int     `toml:"timestep"`
	MstarThreshold         float64 `toml:"mstar_threshold"`
	NPhotons               int64   `toml:"nphotons"`
	DomDumpDir             string  `toml:"dom_dump_dir"`
	DecompositionInflation float64 `toml:"decomposition_inflation"`
	Workers                int     `toml:"workers"` // 0 or 1 = sequential
	Exec                   string  `toml:"exec"`    // optional RASCAS driver
}

// Columns mirrors catalog.Columns in the [catalog.columns] table.
type Columns struct {
	ID     int `toml:"id"`
	X      int `toml:"x"`
	Y      int `toml:"y"`
	Z      int `toml:"z"`
	Radius int `toml:"radius"`
	Mstar  int `toml:"mstar"`
}

// Catalog locates the halo catalogue.
type Catalog struct {
	Path        string  `toml:"path"`
	Columns     Columns `toml:"columns"`
	PosScale    float64 `toml:"pos_scale"`
	RadiusScale float64 `toml:"radius_scale"`
	MassScale   float64 `toml:"mass_scale"`
}

// Clean lists the halos whose stale outputs `haloprep clean` removes.
type Clean struct {
	HaloIDs []int64 `toml:"halo_ids"`
	Subdir  string  `toml:"subdir"`
	Pattern string  `toml:"pattern"`
}

// Plan is the parsed content of a plan file.
type Plan struct {
	Run     Run     `toml:"run"`
	Catalog Catalog `toml:"catalog"`

	Photometry params.Photometry `toml:"photometry"`
	HI         params.HIModel    `toml:"hi"`
	Dust       params.Dust       `toml:"dust"`
	Gas        params.Gas        `toml:"gas"`
	Ramses     params.Ramses     `toml:"ramses"`
	DomDump    params.DomDump    `toml:"dom_dump"`

	Bands []survey.Band `toml:"band"`
	Clean Clean         `toml:"clean"`

	Path string `toml:"-"` // file the plan was read from
}

// Physics returns the run-wide physics parameters.
func (p *Plan) Physics() params.Physics {
	return params.Physics{
		HI:         p.HI,
		Dust:       p.Dust,
		Gas:        p.Gas,
		Ramses:     p.Ramses,
		DomDump:    p.DomDump,
		Photometry: p.Photometry,
	}
}

// Assembler returns the bundle assembler for this plan.
func (p *Plan) Assembler() params.Assembler {
	return params.Assembler{Physics: p.Physics(), Inflation: p.Run.DecompositionInflation}
}

// CatalogColumns converts the [catalog] table to loader columns.
func (p *Plan) CatalogColumns() catalog.Columns {
	c := p.Catalog.Columns
	return catalog.Columns{
		ID: c.ID, X: c.X, Y: c.Y, Z: c.Z, Radius: c.Radius, Mstar: c.Mstar,
		PosScale:    p.Catalog.PosScale,
		RadiusScale: p.Catalog.RadiusScale,
		MassScale:   p.Catalog.MassScale,
	}
}

// Layout returns the dispatcher layout for this plan.
func (p *Plan) Layout() survey.Layout {
	return survey.Layout{
		RascasDir:  p.Run.RascasDir,
		Timestep:   p.Run.Timestep,
		DomDumpDir: p.Run.DomDumpDir,
		RamsesDir:  p.Run.RamsesDir,
		F90Dir:     p.Run.F90Dir,
	}
}
