package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/papapumpkin/haloprep/internal/catalog"
	"github.com/papapumpkin/haloprep/internal/params"
	"github.com/papapumpkin/haloprep/internal/survey"
)

// ErrNoPlan indicates the plan file does not exist.
var ErrNoPlan = errors.New("plan file not found")

// Defaults returns a plan holding every default value. Parsing overlays the
// file on top of it, so keys absent from the file keep these values.
func Defaults() Plan {
	phys := params.DefaultPhysics()
	cols := catalog.DefaultColumns
	return Plan{
		Run: Run{
			Timestep:               183,
			MstarThreshold:         1e-3,
			NPhotons:               1000000,
			DomDumpDir:             "CDD_HI_dust",
			DecompositionInflation: params.DefaultDecompositionInflation,
		},
		Catalog: Catalog{
			Columns: Columns{ID: cols.ID, X: cols.X, Y: cols.Y, Z: cols.Z, Radius: cols.Radius, Mstar: cols.Mstar},
		},
		Photometry: phys.Photometry,
		HI:         phys.HI,
		Dust:       phys.Dust,
		Gas:        phys.Gas,
		Ramses:     phys.Ramses,
		DomDump:    phys.DomDump,
	}
}

// Load reads and parses the plan at path.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoPlan, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Parse decodes plan TOML over Defaults and fills derived values.
func Parse(data []byte) (*Plan, error) {
	p := Defaults()
	if err := toml.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	if len(p.Bands) == 0 {
		p.Bands = []survey.Band{survey.DefaultBand}
	}
	if p.Photometry.PhotTableDir == "" && p.Run.RascasDir != "" {
		p.Photometry.PhotTableDir = filepath.Join(p.Run.RascasDir, "photTables")
	}
	return &p, nil
}
