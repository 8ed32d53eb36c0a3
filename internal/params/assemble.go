package params

import (
	"errors"
	"fmt"
	"math"

	"github.com/papapumpkin/haloprep/internal/catalog"
)

// DefaultDecompositionInflation sizes the decomposition sphere relative to
// the halo radius so that it strictly contains the emission domain.
const DefaultDecompositionInflation = 1.10

// ErrInvalidGeometry indicates a halo whose radius cannot define a domain.
var ErrInvalidGeometry = errors.New("invalid halo geometry")

// GeometryError records the halo that failed geometry validation.
type GeometryError struct {
	HaloID int64
	Radius float64
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("halo %d: radius %g must be > 0: %v", e.HaloID, e.Radius, ErrInvalidGeometry)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// BandOptics carries the band-dependent inputs of a bundle.
type BandOptics struct {
	LambdaAngstrom float64
	Albedo         float64
	GDust          float64
}

// Sphere is a spherical RASCAS domain.
type Sphere struct {
	Center catalog.Vec3
	Radius float64
}

// BandGroups are the groups that depend only on the band. They are built
// once per band and shared by every halo.
type BandGroups struct {
	Photometric Group
	Dust        Group
}

// Bundle is the full parameter set for one (halo, band) pair.
type Bundle struct {
	HaloID          int64
	Computational   Sphere
	Decomposition   Sphere
	NDomain         int
	StellarEmission Sphere

	Photometric Group
	Gas         Group
	Dust        Group
	HI          Group
	Ramses      Group
	DomDump     Group
}

// ComputationalGroup renders the computational domain.
func (b Bundle) ComputationalGroup() Group {
	return NewGroup(GroupComputationalDomain,
		"comput_dom_type", "sphere",
		"comput_dom_pos", Vec(b.Computational.Center),
		"comput_dom_rsp", Float(b.Computational.Radius),
	)
}

// DecompositionGroup renders the domain decomposition.
func (b Bundle) DecompositionGroup() Group {
	c := b.Decomposition.Center
	return NewGroup(GroupDomainDecomposition,
		"decomp_dom_type", "sphere",
		"decomp_dom_ndomain", Int(int64(b.NDomain)),
		"decomp_dom_xc", Float(c[0]),
		"decomp_dom_yc", Float(c[1]),
		"decomp_dom_zc", Float(c[2]),
		"decomp_dom_rsp", Float(b.Decomposition.Radius),
	)
}

// StellarEmissionGroup renders the stellar emission domain.
func (b Bundle) StellarEmissionGroup() Group {
	return NewGroup(GroupStellarEmissionDomain,
		"star_dom_type", "sphere",
		"star_dom_pos", Vec(b.StellarEmission.Center),
		"star_dom_rsp", Float(b.StellarEmission.Radius),
	)
}

// Groups returns every group of the bundle in parameter-file order.
func (b Bundle) Groups() []Group {
	return []Group{
		b.Photometric,
		b.ComputationalGroup(),
		b.DecompositionGroup(),
		b.StellarEmissionGroup(),
		b.Gas,
		b.Dust,
		b.HI,
		b.Ramses,
		b.DomDump,
	}
}

// Assembler turns halos into bundles using one run's physics.
type Assembler struct {
	Physics Physics

	// Inflation multiplies the halo radius for the decomposition domain.
	// Zero selects DefaultDecompositionInflation.
	Inflation float64
}

// NewAssembler returns an assembler with the default inflation factor.
func NewAssembler(p Physics) Assembler {
	return Assembler{Physics: p, Inflation: DefaultDecompositionInflation}
}

func (a Assembler) inflation() float64 {
	if a.Inflation == 0 {
		return DefaultDecompositionInflation
	}
	return a.Inflation
}

// BandGroups builds the band-dependent groups. A nil band falls back to
// the physics defaults for wavelength, albedo and asymmetry.
func (a Assembler) BandGroups(band *BandOptics) BandGroups {
	ph := a.Physics.Photometry
	dust := a.Physics.Dust
	lambda := ph.Lambda0Angstrom
	if band != nil {
		lambda = band.LambdaAngstrom
		dust.Albedo = band.Albedo
		dust.GDust = band.GDust
	}
	return BandGroups{
		Photometric: NewGroup(GroupPhotometricTable,
			"sedDir", ph.SEDDir,
			"sedModel", ph.SEDModel,
			"lbda0_Angstrom", Float(lambda),
			"photTableDir", ph.PhotTableDir,
			"method", ph.Method,
		),
		Dust: NewGroup(GroupDust,
			"albedo", Float(dust.Albedo),
			"g_dust", Float(dust.GDust),
			"dust_model", dust.Model,
		),
	}
}

// Assemble builds the bundle for h and band.
func (a Assembler) Assemble(h catalog.Halo, band *BandOptics) (Bundle, error) {
	return a.AssembleWith(h, a.BandGroups(band))
}

// AssembleWith builds the bundle for h from precomputed band groups.
func (a Assembler) AssembleWith(h catalog.Halo, bg BandGroups) (Bundle, error) {
	if !(h.Radius > 0) || math.IsInf(h.Radius, 0) {
		return Bundle{}, &GeometryError{HaloID: h.ID, Radius: h.Radius}
	}

	domain := Sphere{Center: h.Pos, Radius: h.Radius}
	return Bundle{
		HaloID:          h.ID,
		Computational:   domain,
		Decomposition:   Sphere{Center: h.Pos, Radius: h.Radius * a.inflation()},
		NDomain:         1,
		StellarEmission: domain,
		Photometric:     bg.Photometric,
		Gas:             a.Physics.gasGroup(),
		Dust:            bg.Dust,
		HI:              a.Physics.hiGroup(),
		Ramses:          a.Physics.ramsesGroup(),
		DomDump:         a.Physics.domDumpGroup(),
	}, nil
}
